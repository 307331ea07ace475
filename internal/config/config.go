package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These match typical documentation-site
// characteristics: moderate page counts, JavaScript-heavy rendering, and
// occasionally large diagrams.
const (
	// DefaultConcurrency is the number of parallel render workers. Each
	// worker owns one browser tab, so this bounds browser memory too.
	DefaultConcurrency = 4

	// DefaultRenderTimeout is the per-page render deadline. Documentation
	// sites with heavy JavaScript can take tens of seconds to settle.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultSettleDelay is the fixed post-navigation wait when no smarter
	// settle strategy is configured.
	DefaultSettleDelay = 1500 * time.Millisecond

	// DefaultMaxImageSize is the per-image download ceiling in bytes (10MB).
	// Larger assets are almost never page content.
	DefaultMaxImageSize = 10 * 1024 * 1024

	// DefaultMaxRetries is the retry budget per URL for transient failures.
	DefaultMaxRetries = 3

	// DefaultMaxPages caps the number of pages crawled per run. This
	// prevents runaway crawling on large or infinitely-generating sites.
	DefaultMaxPages = 100

	// DefaultMaxDepth is the maximum link distance followed from the root.
	DefaultMaxDepth = 3

	// DefaultUserAgent identifies docmirror in HTTP requests for image
	// downloads and, unless overridden, for the browser itself.
	DefaultUserAgent = "docmirror/1.0 (+https://github.com/docmirror/docmirror)"

	// AppName is the application name used for XDG directory paths.
	AppName = "docmirror"
)

// Config holds all configuration options for docmirror. It is populated from
// CLI flags and an optional config file, then passed through the application
// by dependency injection rather than global state.
type Config struct {
	// RootURL is the documentation site root to mirror. It defines both the
	// crawl entry point and the same-origin boundary.
	RootURL string

	// OutputDir is the directory the markdown mirror is written to.
	// Created if it does not exist.
	OutputDir string

	// Concurrency is the number of parallel render workers.
	Concurrency int

	// MaxDepth is the maximum link distance followed from the root.
	// A negative value means unlimited.
	MaxDepth int

	// MaxPages caps the number of pages visited per run. Zero means use
	// the default; a negative value means unlimited.
	MaxPages int

	// MaxRetries is the per-URL retry budget for transient render failures.
	MaxRetries int

	// RenderTimeout is the per-page render deadline.
	RenderTimeout time.Duration

	// SettleMode selects how a page is judged finished rendering:
	// "delay", "dom-ready", or "selector".
	SettleMode string

	// SettleDelay is the fixed wait for the "delay" settle mode.
	SettleDelay time.Duration

	// WaitSelector is the CSS selector for the "selector" settle mode.
	WaitSelector string

	// MaxImageSize is the per-image download ceiling in bytes.
	MaxImageSize int64

	// SameOriginImages skips images hosted outside the crawl origin.
	// Disabled by default because documentation sites commonly serve
	// assets from CDNs.
	SameOriginImages bool

	// RemoteDebuggerURL connects to an already running browser instead of
	// launching headless Chrome locally.
	RemoteDebuggerURL string

	// UserAgent is sent with browser navigation and image downloads.
	UserAgent string

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string

	// FollowPatterns restrict crawling to matching URL paths when set.
	FollowPatterns []string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .docmirror in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the human-readable
	// summary. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable summary. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory for the SQLite crawl history database.
	// When empty, runs are not persisted.
	DBDir string

	// SaveToDB indicates whether to save crawl runs to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values. Many defaults are
// non-zero, so zero-value construction would produce a broken config.
func NewConfig() *Config {
	return &Config{
		Concurrency:   DefaultConcurrency,
		MaxDepth:      DefaultMaxDepth,
		MaxPages:      DefaultMaxPages,
		MaxRetries:    DefaultMaxRetries,
		RenderTimeout: DefaultRenderTimeout,
		SettleMode:    "delay",
		SettleDelay:   DefaultSettleDelay,
		MaxImageSize:  DefaultMaxImageSize,
		UserAgent:     DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for docmirror.
// On Linux: ~/.local/share/docmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docmirror.
// On Linux: ~/.config/docmirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It is called once after CLI
// parsing, before the crawl begins, and returns the first error found.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		return ErrNoRootURL
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RenderTimeout <= 0 {
		return ErrInvalidRenderTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.MaxImageSize < 0 {
		return ErrInvalidMaxImageSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.SettleMode == "selector" && c.WaitSelector == "" {
		return ErrSelectorRequired
	}
	return nil
}
