package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinels let callers use errors.Is() while keeping
// human-readable messages.
var (
	// ErrNoRootURL is returned when no crawl root URL is specified.
	ErrNoRootURL = errors.New("no root URL specified: use --url")

	// ErrNoOutputDir is returned when no output directory is specified.
	ErrNoOutputDir = errors.New("no output directory specified: use --output")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRenderTimeout is returned when the render timeout is not positive.
	ErrInvalidRenderTimeout = errors.New("invalid render timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidMaxImageSize is returned when the image size ceiling is negative.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one report format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrSelectorRequired is returned when settle mode is "selector" but no
	// wait selector was provided.
	ErrSelectorRequired = errors.New("settle mode selector requires --wait-selector")
)
