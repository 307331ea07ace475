package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// RenderedPage holds the outcome of rendering a single URL in a browser
// session. It is ephemeral: the orchestrator owns it for the duration of
// processing one URL and it is never persisted directly.
type RenderedPage struct {
	// URL is the normalized URL the page was rendered from.
	URL string

	// Title is the page title, taken from the first <h1> or the <title> tag.
	Title string

	// HTML is the serialized DOM after the settle condition was met.
	// This includes content generated by client-side JavaScript.
	HTML string

	// OutboundLinks contains every href discovered in the rendered DOM,
	// resolved to absolute form. Same-origin filtering happens at the
	// frontier, not here.
	OutboundLinks []string

	// Status is the HTTP status code of the navigation response, when
	// the browser reported one. Zero if it could not be determined.
	Status int
}

// ImageRecord describes one stored image file. Records are created the first
// time a given content hash is seen; later references to the same bytes reuse
// the existing record.
type ImageRecord struct {
	// SourceURL is the URL the image was first downloaded from.
	SourceURL string `json:"source_url"`

	// ContentHash is the hex-encoded SHA-256 digest of the image bytes.
	ContentHash string `json:"content_hash"`

	// ByteSize is the size of the stored file in bytes.
	ByteSize int64 `json:"byte_size"`

	// Extension is the inferred file extension, including the dot.
	Extension string `json:"extension"`

	// LocalPath is the file path relative to the output root,
	// e.g. "images/3f2a9c1b8e4d5f60.png". Always slash-separated.
	LocalPath string `json:"local_path"`
}

// ImageFailure records an image that could not be acquired.
// Image failures never fail the containing page.
type ImageFailure struct {
	// SourceURL is the image URL that failed.
	SourceURL string `json:"source_url"`

	// Reason describes why acquisition failed (too large, fetch failed, ...).
	Reason string `json:"reason"`
}

// ContentHash returns the hex-encoded SHA-256 digest of data.
// It is the content-addressed identity used for image deduplication.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
