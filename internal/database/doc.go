// Package database provides SQLite-based storage for crawl run history.
//
// Each completed mirror run is stored as a full JSON report plus relational
// rows for its pages and images, so past runs can be listed and compared
// without re-parsing report files.
package database
