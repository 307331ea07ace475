package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docmirror/docmirror/internal/model"
)

// ErrNoHTTPClient is returned when no HTTP client is configured.
var ErrNoHTTPClient = errors.New("no HTTP client configured for image downloads")

// DefaultMaxImageSize is the per-image download ceiling (10MB).
const DefaultMaxImageSize = 10 * 1024 * 1024

// FailureKind classifies why an image could not be acquired.
type FailureKind string

const (
	// FailureTooLarge means the image exceeded the configured size ceiling.
	FailureTooLarge FailureKind = "too_large"

	// FailureFetch means the download failed (network error or HTTP >= 400).
	FailureFetch FailureKind = "fetch_failed"

	// FailureWrite means the image bytes could not be written to disk.
	FailureWrite FailureKind = "write_failed"

	// FailureDecode means an inline data: URL could not be decoded.
	FailureDecode FailureKind = "decode_failed"
)

// AcquireError describes a failed image acquisition. Failures never abort the
// page: the caller drops the image reference and the crawl continues.
type AcquireError struct {
	// SourceURL is the image URL that failed.
	SourceURL string

	// Kind classifies the failure.
	Kind FailureKind

	// Err is the underlying cause, possibly nil.
	Err error
}

// Error implements the error interface.
func (e *AcquireError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquire image %s: %s: %v", e.SourceURL, e.Kind, e.Err)
	}
	return fmt.Sprintf("acquire image %s: %s", e.SourceURL, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *AcquireError) Unwrap() error {
	return e.Err
}

// Acquirer downloads images into a directory, deduplicating by SHA-256
// content hash. The stored filename is derived from the hash, so re-running
// a crawl over unchanged content rewrites the same files.
type Acquirer struct {
	// client performs image downloads. Required.
	client *http.Client

	// dir is the directory image files are written to.
	dir string

	// maxSize is the per-image byte ceiling.
	maxSize int64

	mu sync.Mutex

	// byHash maps content hash to the stored record.
	byHash map[string]model.ImageRecord

	// bySource maps a source URL to its content hash, so repeated
	// references skip the network entirely.
	bySource map[string]string

	// failedSource caches failed source URLs so each is attempted once.
	failedSource map[string]*AcquireError

	failures []model.ImageFailure
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithMaxImageSize sets the per-image download ceiling in bytes.
func WithMaxImageSize(n int64) Option {
	return func(a *Acquirer) {
		if n > 0 {
			a.maxSize = n
		}
	}
}

// NewAcquirer creates an acquirer writing into dir. The directory is created
// on first use, not here. The HTTP client is required so the caller controls
// timeouts and headers.
func NewAcquirer(client *http.Client, dir string, opts ...Option) *Acquirer {
	a := &Acquirer{
		client:       client,
		dir:          dir,
		maxSize:      DefaultMaxImageSize,
		byHash:       make(map[string]model.ImageRecord),
		bySource:     make(map[string]string),
		failedSource: make(map[string]*AcquireError),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire fetches the image at sourceURL and stores it, returning the record
// of the stored file. A repeated source URL returns the cached record without
// a network round trip; identical bytes under a new URL reuse the existing
// file. On failure it returns an *AcquireError and records the failure.
func (a *Acquirer) Acquire(ctx context.Context, sourceURL string) (model.ImageRecord, error) {
	a.mu.Lock()
	if hash, ok := a.bySource[sourceURL]; ok {
		rec := a.byHash[hash]
		a.mu.Unlock()
		return rec, nil
	}
	if aerr, ok := a.failedSource[sourceURL]; ok {
		a.mu.Unlock()
		return model.ImageRecord{}, aerr
	}
	a.mu.Unlock()

	data, ext, aerr := a.fetch(ctx, sourceURL)
	if aerr != nil {
		a.recordFailure(aerr)
		return model.ImageRecord{}, aerr
	}

	rec, err := a.store(sourceURL, data, ext)
	if err != nil {
		aerr := &AcquireError{SourceURL: sourceURL, Kind: FailureWrite, Err: err}
		a.recordFailure(aerr)
		return model.ImageRecord{}, aerr
	}
	return rec, nil
}

// Records returns all stored image records sorted by local path.
func (a *Acquirer) Records() []model.ImageRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]model.ImageRecord, 0, len(a.byHash))
	for _, rec := range a.byHash {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LocalPath < records[j].LocalPath
	})
	return records
}

// Failures returns the recorded acquisition failures in occurrence order.
func (a *Acquirer) Failures() []model.ImageFailure {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.ImageFailure, len(a.failures))
	copy(out, a.failures)
	return out
}

// fetch retrieves the raw image bytes and a best-guess file extension.
func (a *Acquirer) fetch(ctx context.Context, sourceURL string) ([]byte, string, *AcquireError) {
	if strings.HasPrefix(sourceURL, "data:") {
		return a.decodeDataURL(sourceURL)
	}

	if a.client == nil {
		return nil, "", &AcquireError{SourceURL: sourceURL, Kind: FailureFetch, Err: ErrNoHTTPClient}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", &AcquireError{SourceURL: sourceURL, Kind: FailureFetch, Err: err}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", &AcquireError{SourceURL: sourceURL, Kind: FailureFetch, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &AcquireError{
			SourceURL: sourceURL,
			Kind:      FailureFetch,
			Err:       fmt.Errorf("HTTP status %d", resp.StatusCode),
		}
	}
	if resp.ContentLength > a.maxSize {
		return nil, "", &AcquireError{
			SourceURL: sourceURL,
			Kind:      FailureTooLarge,
			Err:       fmt.Errorf("content length %d exceeds limit %d", resp.ContentLength, a.maxSize),
		}
	}

	// Read one byte past the ceiling so an over-limit body without a
	// Content-Length header is detected rather than silently truncated.
	limitReader := io.LimitReader(resp.Body, a.maxSize+1)
	data, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, "", &AcquireError{SourceURL: sourceURL, Kind: FailureFetch, Err: err}
	}
	if int64(len(data)) > a.maxSize {
		return nil, "", &AcquireError{
			SourceURL: sourceURL,
			Kind:      FailureTooLarge,
			Err:       fmt.Errorf("body exceeds limit %d", a.maxSize),
		}
	}

	return data, inferExtension(resp.Header.Get("Content-Type"), sourceURL), nil
}

// decodeDataURL decodes an inline base64 data: URL.
func (a *Acquirer) decodeDataURL(dataURL string) ([]byte, string, *AcquireError) {
	meta, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, "", &AcquireError{
			SourceURL: truncateForLog(dataURL),
			Kind:      FailureDecode,
			Err:       errors.New("malformed data URL"),
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Try URL-safe base64
		data, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", &AcquireError{
				SourceURL: truncateForLog(dataURL),
				Kind:      FailureDecode,
				Err:       err,
			}
		}
	}
	if int64(len(data)) > a.maxSize {
		return nil, "", &AcquireError{
			SourceURL: truncateForLog(dataURL),
			Kind:      FailureTooLarge,
			Err:       fmt.Errorf("decoded size %d exceeds limit %d", len(data), a.maxSize),
		}
	}

	contentType := strings.TrimPrefix(meta, "data:")
	contentType = strings.TrimSuffix(contentType, ";base64")
	return data, inferExtension(contentType, ""), nil
}

// store writes the image under its content hash, reusing an existing file
// for identical bytes. The hash lookup and file write happen under the lock
// so two workers never race on the same content.
func (a *Acquirer) store(sourceURL string, data []byte, ext string) (model.ImageRecord, error) {
	hash := model.ContentHash(data)

	a.mu.Lock()
	defer a.mu.Unlock()

	if rec, ok := a.byHash[hash]; ok {
		a.bySource[sourceURL] = hash
		return rec, nil
	}

	if err := os.MkdirAll(a.dir, 0750); err != nil {
		return model.ImageRecord{}, err
	}

	filename := hash[:16] + ext
	localPath := filepath.Join(a.dir, filename)
	if err := os.WriteFile(localPath, data, 0600); err != nil {
		return model.ImageRecord{}, err
	}

	rec := model.ImageRecord{
		SourceURL:   sourceURL,
		ContentHash: hash,
		ByteSize:    int64(len(data)),
		Extension:   ext,
		LocalPath:   filename,
	}
	a.byHash[hash] = rec
	a.bySource[sourceURL] = hash
	return rec, nil
}

// recordFailure caches the failure so the same source URL is not retried.
func (a *Acquirer) recordFailure(aerr *AcquireError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.failedSource[aerr.SourceURL]; ok {
		return
	}
	a.failedSource[aerr.SourceURL] = aerr
	a.failures = append(a.failures, model.ImageFailure{
		SourceURL: aerr.SourceURL,
		Reason:    string(aerr.Kind),
	})
}

// inferExtension picks a file extension from the Content-Type header first,
// then from the URL path, falling back to .bin for unknown content.
func inferExtension(contentType, sourceURL string) string {
	switch mediaType, _, err := mime.ParseMediaType(contentType); {
	case err != nil:
	case mediaType == "image/jpeg":
		return ".jpg"
	case mediaType == "image/png":
		return ".png"
	case mediaType == "image/gif":
		return ".gif"
	case mediaType == "image/webp":
		return ".webp"
	case mediaType == "image/svg+xml":
		return ".svg"
	case mediaType == "image/avif":
		return ".avif"
	case mediaType == "image/x-icon", mediaType == "image/vnd.microsoft.icon":
		return ".ico"
	case mediaType == "image/bmp":
		return ".bmp"
	case mediaType == "image/tiff":
		return ".tiff"
	}

	if sourceURL != "" {
		if u, err := url.Parse(sourceURL); err == nil {
			if ext := strings.ToLower(path.Ext(u.Path)); isImageExt(ext) {
				return ext
			}
		}
	}
	return ".bin"
}

// isImageExt reports whether ext is a recognized image file extension.
func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif", ".ico", ".bmp", ".tiff":
		return true
	}
	return false
}

// truncateForLog shortens inline data URLs so failure records stay readable.
func truncateForLog(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
