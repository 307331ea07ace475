// Package images downloads page images and stores them deduplicated by
// content hash.
//
// Identical bytes fetched from different URLs share one file on disk, and
// the same source URL is never fetched twice within a crawl. All methods
// are safe for concurrent use by the crawl workers.
package images
