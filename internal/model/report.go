package model

import "time"

// MirrorReport is the crawl-wide summary. The orchestrator is its only writer;
// report writers and the crawl database read it after the crawl finishes.
type MirrorReport struct {
	// RootURL is the normalized crawl root and same-origin boundary.
	RootURL string `json:"root_url"`

	// OutputDir is the directory the mirror was written to.
	OutputDir string `json:"output_dir"`

	// StartedAt and FinishedAt bound the crawl run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is true when the crawl was interrupted before the frontier
	// was exhausted. A cancelled crawl still produces a partial report.
	Cancelled bool `json:"cancelled,omitempty"`

	// Results holds one entry per visited URL.
	Results []CrawlResult `json:"results"`

	// Images holds one record per unique stored image.
	Images []ImageRecord `json:"images,omitempty"`

	// ImageFailures holds images that could not be acquired.
	ImageFailures []ImageFailure `json:"image_failures,omitempty"`

	// CrossOriginLinks are links that pointed outside the crawl origin.
	// They are recorded for reporting but were never queued.
	CrossOriginLinks []string `json:"cross_origin_links,omitempty"`
}

// NewMirrorReport creates a report for the given crawl root and output directory.
func NewMirrorReport(rootURL, outputDir string) *MirrorReport {
	return &MirrorReport{
		RootURL:   rootURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		Results:   make([]CrawlResult, 0),
	}
}

// SucceededCount returns the number of successfully mirrored pages.
func (r *MirrorReport) SucceededCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// FailedCount returns the number of pages that terminally failed.
func (r *MirrorReport) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// ImageBytes returns the total size of all stored image files.
func (r *MirrorReport) ImageBytes() int64 {
	var total int64
	for _, img := range r.Images {
		total += img.ByteSize
	}
	return total
}

// Duration returns the elapsed crawl time. For a report that has not been
// finalized yet it returns the time since the crawl started.
func (r *MirrorReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedResults returns only the failed entries, preserving order.
func (r *MirrorReport) FailedResults() []CrawlResult {
	failed := make([]CrawlResult, 0)
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}
