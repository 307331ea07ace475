package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/docmirror/docmirror/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown, designed for
// checking a mirror run into the repository next to the mirror itself.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFailedPages(md, report)
	w.writeImageFailures(md, report)
	w.writeCrossOriginLinks(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H1("Mirror Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.RootURL + "`"},
			{"Output", "`" + report.OutputDir + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(durationPrecision).String()},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell based on report state.
func (w *MarkdownWriter) statusText(report *model.MirrorReport) string {
	if report.Cancelled {
		return "⚠️ Cancelled (partial mirror)"
	}
	if report.FailedCount() > 0 {
		return "🟡 Complete with failures"
	}
	return "✅ Complete"
}

// writeSummary writes the page and image counts with a pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages mirrored", strconv.Itoa(report.SucceededCount())},
			{"Pages failed", strconv.Itoa(report.FailedCount())},
			{"Images stored", strconv.Itoa(len(report.Images))},
			{"Image bytes", formatBytes(report.ImageBytes())},
			{"Cross-origin links", strconv.Itoa(len(report.CrossOriginLinks))},
		},
	})
	md.PlainText("")

	if len(report.Results) > 0 {
		w.writePieChart(md, report)
	}

	switch {
	case report.Cancelled:
		md.Warningf("The crawl was interrupted; %d page(s) were mirrored before cancellation.",
			report.SucceededCount())
	case report.FailedCount() > 0:
		md.Importantf("%d page(s) failed and are missing from the mirror.", report.FailedCount())
	default:
		md.Tip("All discovered pages were mirrored successfully.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.MirrorReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if n := report.SucceededCount(); n > 0 {
		chart.LabelAndIntValue("Mirrored", uint64(n))
	}
	if n := report.FailedCount(); n > 0 {
		chart.LabelAndIntValue("Failed", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailedPages writes the table of terminally failed URLs.
func (w *MarkdownWriter) writeFailedPages(md *markdown.Markdown, report *model.MirrorReport) {
	failed := report.FailedResults()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Pages")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, f := range failed {
		rows[i] = []string{
			"`" + f.URL + "`",
			truncateString(f.Reason, 60),
			strconv.Itoa(f.Retries),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason", "Retries"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeImageFailures writes the images that could not be acquired.
func (w *MarkdownWriter) writeImageFailures(md *markdown.Markdown, report *model.MirrorReport) {
	if len(report.ImageFailures) == 0 {
		return
	}

	md.H2("Image Failures")
	md.PlainText("")

	rows := make([][]string, len(report.ImageFailures))
	for i, f := range report.ImageFailures {
		rows[i] = []string{
			"`" + truncateString(f.SourceURL, 80) + "`",
			f.Reason,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCrossOriginLinks lists links that pointed outside the crawl origin.
func (w *MarkdownWriter) writeCrossOriginLinks(md *markdown.Markdown, report *model.MirrorReport) {
	if len(report.CrossOriginLinks) == 0 {
		return
	}

	md.H2("Cross-Origin Links")
	md.PlainText("")
	md.PlainText("These links were kept as absolute URLs and not mirrored:")
	md.PlainText("")
	md.BulletList(report.CrossOriginLinks...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [docmirror](https://github.com/docmirror/docmirror)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
