// Package model defines the core data types shared across the mirroring
// pipeline: normalized URLs, rendered pages, image records, per-page crawl
// results, and the crawl-wide mirror report.
package model
