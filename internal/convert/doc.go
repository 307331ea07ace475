// Package convert turns rendered HTML pages into markdown documents.
//
// Conversion happens in two phases: the DOM is first cleaned and rewritten
// with goquery (content container selection, noise removal, link and image
// rewriting), then the surviving fragment is converted to markdown. Link
// and image destinations are supplied by the caller through Resolvers, so
// the converter itself knows nothing about output layout or image storage.
package convert
