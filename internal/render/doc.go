// Package render drives headless Chrome to produce post-JavaScript HTML.
//
// An Allocator owns the browser process (or the connection to a remote
// debugger). Each crawl worker holds one Session, which maps to one browser
// tab. Sessions are cheap to recreate: after a transient render failure the
// worker closes its session and opens a fresh tab from the same allocator.
package render
