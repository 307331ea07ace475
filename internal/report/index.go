package report

import (
	"io"
	"sort"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/docmirror/docmirror/internal/model"
)

// IndexFileName is the table-of-contents file written at the mirror root.
// The root page itself already owns index.md, so the generated index gets
// its own name.
const IndexFileName = "INDEX.md"

// rootSection groups pages that live directly at the mirror root.
const rootSection = "Overview"

// WriteIndex generates the mirror's table of contents: every successfully
// mirrored page grouped by its top-level directory, with links to the local
// file and the original URL.
func WriteIndex(output io.Writer, report *model.MirrorReport) error {
	md := markdown.NewMarkdown(output)
	titler := cases.Title(language.English)

	md.H1("Documentation Index")
	md.PlainText("")
	md.PlainTextf("Mirrored from [%s](%s).", report.RootURL, report.RootURL)
	md.PlainText("")

	sections, order := groupBySection(report)
	for _, section := range order {
		md.H2(titler.String(sectionTitle(section)))
		md.PlainText("")

		items := make([]string, 0, len(sections[section]))
		for _, page := range sections[section] {
			title := page.Title
			if title == "" {
				title = page.MarkdownPath
			}
			items = append(items,
				"["+title+"]("+page.MarkdownPath+") ([source]("+page.URL+"))")
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	return md.Build()
}

// groupBySection buckets successful pages by the first path segment of
// their markdown file. Sections come back sorted, with the root section
// first; pages within a section are sorted by path.
func groupBySection(report *model.MirrorReport) (map[string][]model.CrawlResult, []string) {
	sections := make(map[string][]model.CrawlResult)
	for _, page := range report.Results {
		if page.Status != model.StatusSuccess || page.MarkdownPath == "" {
			continue
		}
		section := rootSection
		if i := strings.IndexByte(page.MarkdownPath, '/'); i >= 0 {
			section = page.MarkdownPath[:i]
		}
		sections[section] = append(sections[section], page)
	}

	order := make([]string, 0, len(sections))
	for section := range sections {
		if section != rootSection {
			order = append(order, section)
		}
	}
	sort.Strings(order)
	if _, ok := sections[rootSection]; ok {
		order = append([]string{rootSection}, order...)
	}

	for _, section := range order {
		pages := sections[section]
		sort.Slice(pages, func(i, j int) bool {
			return pages[i].MarkdownPath < pages[j].MarkdownPath
		})
	}

	return sections, order
}

// sectionTitle turns a path segment like "getting-started" into a heading
// like "getting started" before title casing.
func sectionTitle(section string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(section)
}
