package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a render failure for retry decisions.
type ErrorKind string

const (
	// KindNavigationTimeout means the page did not finish loading within
	// the render timeout. Transient.
	KindNavigationTimeout ErrorKind = "navigation_timeout"

	// KindSessionLost means the browser tab or process died. Transient;
	// the worker must recreate its session before retrying.
	KindSessionLost ErrorKind = "session_lost"

	// KindHTTPError means the server answered with a failure status.
	// 5xx responses are transient, 4xx are permanent.
	KindHTTPError ErrorKind = "http_error"
)

// Error describes a failed render of one URL.
type Error struct {
	// URL is the page that failed to render.
	URL string

	// Kind classifies the failure.
	Kind ErrorKind

	// StatusCode is set for KindHTTPError, 0 otherwise.
	StatusCode int

	// Err is the underlying cause, possibly nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTPError:
		return fmt.Sprintf("render %s: HTTP status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("render %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("render %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the same URL could succeed.
// Client errors (4xx) are the only permanent failures: the server answered
// and will keep answering the same way.
func (e *Error) Transient() bool {
	if e.Kind == KindHTTPError {
		return e.StatusCode >= 500
	}
	return true
}

// NeedsNewSession reports whether the worker must discard its session
// before retrying. Timeouts cancel the tab context, so they invalidate the
// session just like a crashed tab does.
func (e *Error) NeedsNewSession() bool {
	return e.Kind == KindNavigationTimeout || e.Kind == KindSessionLost
}

// classify wraps a raw chromedp error into an *Error. The crawl-level
// context is consulted so crawl cancellation is not misreported as a
// per-page timeout.
func classify(crawlCtx context.Context, pageURL string, err error) error {
	if crawlCtx.Err() != nil {
		return crawlCtx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{URL: pageURL, Kind: KindNavigationTimeout, Err: err}
	}
	// Everything else from the browser side means the tab is unusable.
	return &Error{URL: pageURL, Kind: KindSessionLost, Err: err}
}

// httpError builds the *Error for a failure status response.
func httpError(pageURL string, status int) error {
	return &Error{URL: pageURL, Kind: KindHTTPError, StatusCode: status}
}
