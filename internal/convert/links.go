package convert

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docmirror/docmirror/internal/model"
)

// ExtractLinks collects every <a> href in the full document, resolved to an
// absolute URL. Discovery runs on the whole page, not just the content
// container, because documentation sites link most pages from navigation.
func ExtractLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		resolved := model.ResolveReference(baseURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	return links, nil
}

// ExtractTitle returns the page title, preferring the first <h1> over the
// <title> element. Returns "" when neither exists.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
