// Package crawler orchestrates the mirror crawl: it owns the frontier, the
// worker pool, retry policy, and the assembly of rendered pages into
// markdown files on disk.
package crawler
