package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ImagesDirName is the subdirectory of the output root holding stored images.
const ImagesDirName = "images"

// OutputPath maps a page URL to its markdown file path relative to the
// output root. The site's directory structure is preserved:
//
//	https://host/            -> index.md
//	https://host/guide/      -> guide.md
//	https://host/a/b.html    -> a/b.md
//	https://host/a/b.png     -> a/b.png (non-HTML extensions kept)
func OutputPath(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("map %s to output path: %w", pageURL, err)
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "index.md", nil
	}

	dir, last := path.Split(p)
	switch ext := path.Ext(last); {
	case ext == ".html" || ext == ".htm":
		last = strings.TrimSuffix(last, ext) + ".md"
	case ext == "":
		last += ".md"
	}

	return path.Join(dir, last), nil
}

// RelativePath returns the path of target relative to the directory holding
// from. Both are slash-separated paths relative to the output root, so a
// page at guide/intro.md references images/x.png as ../images/x.png and a
// sibling page guide/setup.md as setup.md.
func RelativePath(from, target string) string {
	var fromParts []string
	if dir := path.Dir(from); dir != "." {
		fromParts = strings.Split(dir, "/")
	}
	targetParts := strings.Split(target, "/")

	shared := 0
	for shared < len(fromParts) && shared < len(targetParts)-1 &&
		fromParts[shared] == targetParts[shared] {
		shared++
	}

	var b strings.Builder
	for i := shared; i < len(fromParts); i++ {
		b.WriteString("../")
	}
	b.WriteString(path.Join(targetParts[shared:]...))
	return b.String()
}

// SourceHeader is the provenance line prepended to every mirrored page.
func SourceHeader(pageURL string) string {
	return fmt.Sprintf("Source: [%s](%s)\n\n---\n\n", pageURL, pageURL)
}
