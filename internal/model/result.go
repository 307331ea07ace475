package model

// CrawlStatus is the terminal state of a single visited URL.
type CrawlStatus string

const (
	// StatusSuccess means the page was rendered, converted, and written.
	StatusSuccess CrawlStatus = "success"

	// StatusFailed means the page exhausted its retry budget or hit a
	// non-retryable error. The crawl continues with other URLs.
	StatusFailed CrawlStatus = "failed"
)

// CrawlResult is the immutable per-URL outcome appended to the mirror report.
// Exactly one result is recorded per visited URL.
type CrawlResult struct {
	// URL is the normalized URL that was visited.
	URL string `json:"url"`

	// Title is the rendered page title, empty for failed pages.
	Title string `json:"title,omitempty"`

	// MarkdownPath is the output file path relative to the output root.
	// Empty when Status is StatusFailed.
	MarkdownPath string `json:"markdown_path,omitempty"`

	// Status is the terminal outcome for this URL.
	Status CrawlStatus `json:"status"`

	// Reason describes the failure when Status is StatusFailed.
	Reason string `json:"reason,omitempty"`

	// Retries is the number of retry attempts that were made before the
	// terminal outcome (0 means the first attempt decided it).
	Retries int `json:"retries"`

	// ImagesEmbedded is the number of image references successfully
	// rewritten to local files in the page's markdown.
	ImagesEmbedded int `json:"images_embedded"`
}
