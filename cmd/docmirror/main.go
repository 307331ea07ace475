// Package main provides the entry point for the docmirror CLI.
//
// docmirror mirrors a documentation website into a local markdown tree.
// Pages are rendered in headless Chrome so JavaScript-generated content is
// captured, then converted to markdown with links and images rewritten to
// local files.
//
// Usage:
//
//	docmirror mirror --url https://docs.example.com --output ./docs
//	docmirror history --url https://docs.example.com
//
// See --help for all available options.
package main

// main is the entry point for docmirror.
func main() {
	Execute()
}
