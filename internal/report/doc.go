// Package report renders mirror run results in multiple output formats.
//
// Three writers share one interface: a human-readable text summary for the
// terminal, GitHub-flavored Markdown for documentation, and JSON for tool
// integration. The package also generates the mirror's table of contents.
package report
