package convert

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/docmirror/docmirror/internal/model"
)

// contentSelectors identify the main content container, tried in priority
// order. The list covers GitBook, Docusaurus, MkDocs, and plain semantic
// HTML layouts.
var contentSelectors = []string{
	"div[role='main']",
	"main",
	"div.content",
	"div.markdown",
	"div.page-inner",
	"div#content",
	"div.documentation",
	"article",
	"div[class*='content']",
	"div[class*='markdown']",
}

// noiseSelectors are elements removed before conversion. They carry site
// chrome, not page content.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer",
	"iframe", "canvas",
	"form", "button", "input", "select", "textarea",
	"[role='navigation']",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// Resolvers supplies the destinations for rewritten links and images.
type Resolvers struct {
	// Image maps an absolute image URL to the local path to reference in
	// markdown. A non-nil error drops the image from the page.
	Image func(absURL string) (string, error)

	// Link maps an absolute page URL to a relative markdown path. ok=false
	// leaves the link pointing at its absolute URL.
	Link func(absURL string) (mdPath string, ok bool)
}

// Result is the outcome of converting one page.
type Result struct {
	// Markdown is the converted document body.
	Markdown string

	// ImagesEmbedded counts image references rewritten to local files.
	ImagesEmbedded int

	// ImagesDropped counts image references removed because acquisition failed.
	ImagesDropped int
}

// Converter converts rendered HTML to markdown. It is stateless across
// pages and safe for concurrent use.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a markdown converter with commonmark and table
// support.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert turns a rendered page into markdown. The page URL is the base for
// resolving relative hrefs and image sources before the resolvers see them.
func (c *Converter) Convert(page *model.RenderedPage, res Resolvers) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML for %s: %w", page.URL, err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	content := findContent(doc)
	if content == nil {
		return nil, fmt.Errorf("no content container found in %s", page.URL)
	}

	result := &Result{}
	rewriteImages(content, page.URL, res, result)
	rewriteLinks(content, page.URL, res)

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("serialize content for %s: %w", page.URL, err)
	}

	markdown, err := c.conv.ConvertString(fragment)
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", page.URL, err)
	}

	result.Markdown = strings.TrimSpace(markdown) + "\n"
	return result, nil
}

// findContent picks the best content container, falling back to <body>.
func findContent(doc *goquery.Document) *goquery.Selection {
	for _, selectorStr := range contentSelectors {
		var found *goquery.Selection
		doc.Find(selectorStr).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if isNavigationLike(s) {
				return true
			}
			if strings.TrimSpace(s.Text()) == "" {
				return true
			}
			found = s
			return false
		})
		if found != nil {
			return found
		}
	}

	if body := doc.Find("body"); body.Length() > 0 {
		return body.First()
	}
	return nil
}

// isNavigationLike reports whether a candidate container is actually site
// navigation that slipped through the selector.
func isNavigationLike(s *goquery.Selection) bool {
	if role, ok := s.Attr("role"); ok && role == "navigation" {
		return true
	}
	if class, ok := s.Attr("class"); ok {
		for _, marker := range []string{"nav", "menu", "sidebar"} {
			if strings.Contains(class, marker) {
				return true
			}
		}
	}
	return false
}

// rewriteImages resolves every <img> src and replaces it with the local
// stored path. Images the resolver rejects are removed entirely, so the
// markdown never references a file that does not exist.
func rewriteImages(content *goquery.Selection, pageURL string, res Resolvers, result *Result) {
	content.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			s.Remove()
			return
		}

		// data: URLs carry the image inline; pass them through unresolved.
		absURL := src
		if !strings.HasPrefix(src, "data:") {
			absURL = model.ResolveReference(pageURL, src)
			if absURL == "" {
				s.Remove()
				return
			}
		}

		if res.Image == nil {
			s.Remove()
			return
		}
		localPath, err := res.Image(absURL)
		if err != nil {
			s.Remove()
			result.ImagesDropped++
			return
		}
		s.SetAttr("src", localPath)
		s.RemoveAttr("srcset")
		result.ImagesEmbedded++
	})

	// <picture> sources would override the rewritten <img> src.
	content.Find("picture source").Remove()
}

// rewriteLinks resolves every <a> href and points same-site page links at
// their local markdown files. Everything else keeps its absolute URL.
func rewriteLinks(content *goquery.Selection, pageURL string, res Resolvers) {
	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		absURL := model.ResolveReference(pageURL, href)
		if absURL == "" {
			return
		}

		if res.Link != nil {
			if mdPath, ok := res.Link(absURL); ok {
				s.SetAttr("href", mdPath)
				return
			}
		}
		s.SetAttr("href", absURL)
	})
}
