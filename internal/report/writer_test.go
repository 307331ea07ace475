package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/docmirror/docmirror/internal/model"
)

func sampleReport() *model.MirrorReport {
	return &model.MirrorReport{
		RootURL:    "https://docs.example.com/",
		OutputDir:  "/tmp/mirror",
		StartedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 20, 10, 3, 30, 0, time.UTC),
		Results: []model.CrawlResult{
			{
				URL:          "https://docs.example.com/",
				Title:        "Home",
				MarkdownPath: "index.md",
				Status:       model.StatusSuccess,
			},
			{
				URL:          "https://docs.example.com/guide/intro",
				Title:        "Introduction",
				MarkdownPath: "guide/intro.md",
				Status:       model.StatusSuccess,
			},
			{
				URL:          "https://docs.example.com/guide/setup",
				Title:        "Setup",
				MarkdownPath: "guide/setup.md",
				Status:       model.StatusSuccess,
			},
			{
				URL:     "https://docs.example.com/broken",
				Status:  model.StatusFailed,
				Reason:  "render https://docs.example.com/broken: HTTP status 404",
				Retries: 0,
			},
		},
		Images: []model.ImageRecord{
			{SourceURL: "https://docs.example.com/logo.png", ContentHash: "ff00", ByteSize: 4096, LocalPath: "ff00.png"},
		},
		ImageFailures: []model.ImageFailure{
			{SourceURL: "https://docs.example.com/huge.png", Reason: "too_large"},
		},
		CrossOriginLinks: []string{"https://github.com/example/repo"},
	}
}

// TestSimpleWriter verifies the text summary content.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(sampleReport())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"https://docs.example.com/",
		"3 mirrored, 1 failed",
		"1 stored (4.0 KiB)",
		"1 image(s) could not be fetched",
		"1 cross-origin link(s)",
		"HTTP status 404",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

// TestMarkdownWriter verifies the markdown report structure.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Mirror Report",
		"## Summary",
		"## Failed Pages",
		"## Image Failures",
		"## Cross-Origin Links",
		"mermaid",
		"`https://docs.example.com/broken`",
		"https://github.com/example/repo",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q", want)
		}
	}
}

// TestMarkdownWriterCleanRun verifies that empty sections are omitted.
func TestMarkdownWriterCleanRun(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Results = r.Results[:3]
	r.ImageFailures = nil
	r.CrossOriginLinks = nil

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	for _, absent := range []string{"## Failed Pages", "## Image Failures", "## Cross-Origin Links"} {
		if strings.Contains(out, absent) {
			t.Errorf("clean run report contains %q", absent)
		}
	}
}

// TestJSONWriter verifies JSON output round-trips.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded model.MirrorReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RootURL != "https://docs.example.com/" {
		t.Errorf("RootURL = %q", decoded.RootURL)
	}
	if len(decoded.Results) != 4 {
		t.Errorf("decoded %d results, want 4", len(decoded.Results))
	}
}

// TestFullJSONWriter verifies the version wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded VersionedReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", decoded.Version)
	}
	if decoded.Report == nil || decoded.Report.RootURL == "" {
		t.Error("wrapped report missing")
	}
}

// TestMultiWriter verifies fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

	if _, err := mw.Write(sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Errorf("multi writer skipped a destination: %d/%d bytes", a.Len(), b.Len())
	}
}

// TestWriteIndex verifies section grouping and link formatting.
func TestWriteIndex(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteIndex(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Documentation Index",
		"## Overview",
		"## Guide",
		"[Home](index.md)",
		"[Introduction](guide/intro.md)",
		"([source](https://docs.example.com/guide/intro))",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("index missing %q:\n%s", want, out)
		}
	}

	// Failed pages are excluded from the index.
	if strings.Contains(out, "broken") {
		t.Errorf("failed page leaked into index:\n%s", out)
	}

	// The root section comes before directory sections.
	if strings.Index(out, "## Overview") > strings.Index(out, "## Guide") {
		t.Error("root section not listed first")
	}
}

// TestFormatBytes covers the unit formatter.
func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{4096, "4.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
