package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docmirror/docmirror/internal/model"
)

// durationPrecision keeps elapsed times readable in terminal output.
const durationPrecision = 100 * time.Millisecond

// SimpleWriter outputs a human-readable text summary for terminal use.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report as plain text.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var b strings.Builder

	b.WriteString("Mirror Summary\n")
	b.WriteString("==============\n\n")
	fmt.Fprintf(&b, "Site:      %s\n", report.RootURL)
	fmt.Fprintf(&b, "Output:    %s\n", report.OutputDir)
	fmt.Fprintf(&b, "Duration:  %s\n", report.Duration().Round(durationPrecision))
	if report.Cancelled {
		b.WriteString("Status:    CANCELLED (partial mirror)\n")
	} else {
		b.WriteString("Status:    complete\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Pages:     %d mirrored, %d failed\n",
		report.SucceededCount(), report.FailedCount())
	fmt.Fprintf(&b, "Images:    %d stored (%s)\n",
		len(report.Images), formatBytes(report.ImageBytes()))
	if n := len(report.ImageFailures); n > 0 {
		fmt.Fprintf(&b, "           %d image(s) could not be fetched\n", n)
	}
	if n := len(report.CrossOriginLinks); n > 0 {
		fmt.Fprintf(&b, "Links:     %d cross-origin link(s) left absolute\n", n)
	}

	if failed := report.FailedResults(); len(failed) > 0 {
		b.WriteString("\nFailed pages:\n")
		for _, f := range failed {
			fmt.Fprintf(&b, "  %s\n    %s (retries: %d)\n", f.URL, f.Reason, f.Retries)
		}
	}

	return io.WriteString(w.output, b.String())
}

// formatBytes renders a byte count with a human unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
