package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docmirror/docmirror/internal/config"
	"github.com/docmirror/docmirror/internal/crawler"
	"github.com/docmirror/docmirror/internal/database"
	"github.com/docmirror/docmirror/internal/frontier"
	"github.com/docmirror/docmirror/internal/images"
	"github.com/docmirror/docmirror/internal/log"
	"github.com/docmirror/docmirror/internal/model"
	"github.com/docmirror/docmirror/internal/render"
	"github.com/docmirror/docmirror/internal/report"
)

// Default report file names written into the output directory when a report
// format is selected without an explicit --report path.
const (
	defaultMarkdownReportName = "mirror-report.md"
	defaultJSONReportName     = "mirror-report.json"
)

// imageClientTimeout bounds a single image download.
const imageClientTimeout = 30 * time.Second

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror a documentation site into a local markdown tree",
		Long: `Mirror crawls a documentation website starting from the root URL, renders
each page in headless Chrome, and writes it as markdown under the output
directory. The file layout mirrors the site's URL paths; images land in an
images/ subdirectory, deduplicated by content hash.

Only pages on the root URL's origin are crawled. Links to other hosts stay
absolute in the markdown and are listed in the report.

Examples:
  # Mirror a documentation site
  docmirror mirror --url https://docs.example.com --output ./docs

  # Limit the crawl and wait for client-side rendering to finish
  docmirror mirror --url https://docs.example.com --output ./docs \
    --max-pages 50 --settle selector --wait-selector "main article"

  # Attach to an already running browser
  docmirror mirror --url https://docs.example.com --output ./docs \
    --remote-debugger ws://127.0.0.1:9222

  # Write a markdown report next to the mirror
  docmirror mirror --url https://docs.example.com --output ./docs --markdown

Configuration file (.docmirror) example:
  sites:
    docs.example.com:
      headers:
        Authorization: "Bearer token"
      depth: 5
      waitSelector: "div.content"
      ignorePatterns:
        - "/api/changelog/*"`,
		Args: cobra.NoArgs,
		RunE: runMirrorCmd,
	}

	// Crawl scope flags
	cmd.Flags().StringP("url", "u", "", "Root URL of the documentation site (required)")
	cmd.Flags().StringP("output", "o", "", "Output directory for the markdown mirror (required)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the root (negative for unlimited)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to mirror (negative for unlimited)")
	cmd.Flags().StringSlice("ignore", nil,
		"URL path patterns to skip (repeatable, glob syntax)")
	cmd.Flags().StringSlice("follow", nil,
		"URL path patterns to restrict the crawl to (repeatable, glob syntax)")

	// Rendering flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of parallel render workers (one browser tab each)")
	cmd.Flags().DurationP("render-timeout", "t", config.DefaultRenderTimeout,
		"Per-page render deadline")
	cmd.Flags().String("settle", "delay",
		"How to decide a page finished rendering: delay, dom-ready, or selector")
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Fixed wait after navigation for the delay settle mode")
	cmd.Flags().String("wait-selector", "",
		"CSS selector to wait for with the selector settle mode")
	cmd.Flags().String("remote-debugger", "",
		"DevTools websocket URL of a running browser (e.g., ws://127.0.0.1:9222)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User agent for browser navigation and image downloads")

	// Image flags
	cmd.Flags().Int64("max-image-size", config.DefaultMaxImageSize,
		"Per-image download ceiling in bytes")
	cmd.Flags().Bool("same-origin-images", false,
		"Skip images hosted outside the crawl origin (CDN assets are fetched by default)")

	// Retry flags
	cmd.Flags().IntP("max-retries", "r", config.DefaultMaxRetries,
		"Retry budget per URL for transient render failures")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .docmirror in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Write a JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write a Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Report file path (default: mirror-report.md or .json in the output directory)")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Site configs can carry auth headers, so all logging goes through the
	// sanitizing handler.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Interrupts drain the crawl instead of killing it; partial mirrors
	// and the report survive.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runMirror(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.RootURL, err = cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.IgnorePatterns, err = cmd.Flags().GetStringSlice("ignore")
	if err != nil {
		return nil, err
	}

	cfg.FollowPatterns, err = cmd.Flags().GetStringSlice("follow")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.RenderTimeout, err = cmd.Flags().GetDuration("render-timeout")
	if err != nil {
		return nil, err
	}

	cfg.SettleMode, err = cmd.Flags().GetString("settle")
	if err != nil {
		return nil, err
	}

	cfg.SettleDelay, err = cmd.Flags().GetDuration("settle-delay")
	if err != nil {
		return nil, err
	}

	cfg.WaitSelector, err = cmd.Flags().GetString("wait-selector")
	if err != nil {
		return nil, err
	}

	cfg.RemoteDebuggerURL, err = cmd.Flags().GetString("remote-debugger")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MaxImageSize, err = cmd.Flags().GetInt64("max-image-size")
	if err != nil {
		return nil, err
	}

	cfg.SameOriginImages, err = cmd.Flags().GetBool("same-origin-images")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from the config file.
	// If the user explicitly specified a path, a missing file is an error.
	// Otherwise a missing file silently yields an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save run history to the XDG data directory.
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// runMirror executes the crawl.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	rootURL, err := url.Parse(cfg.RootURL)
	if err != nil {
		return fmt.Errorf("invalid root URL %q: %w", cfg.RootURL, err)
	}

	// Site-specific settings from the config file override flags.
	siteConfig := cfg.SiteConfigs.GetSiteConfig(rootURL.Hostname())
	maxDepth := cfg.MaxDepth
	if siteConfig.Depth > 0 {
		maxDepth = siteConfig.Depth
	}
	waitSelector := cfg.WaitSelector
	settleMode := cfg.SettleMode
	if siteConfig.WaitSelector != "" {
		waitSelector = siteConfig.WaitSelector
		settleMode = string(render.SettleSelector)
	}
	ignorePatterns := cfg.IgnorePatterns
	if len(siteConfig.IgnorePatterns) > 0 {
		ignorePatterns = append(ignorePatterns, siteConfig.IgnorePatterns...)
	}
	followPatterns := cfg.FollowPatterns
	if len(siteConfig.FollowPatterns) > 0 {
		followPatterns = append(followPatterns, siteConfig.FollowPatterns...)
	}
	headers := siteConfig.ResolvedHeaders()

	mode, err := render.ParseSettleMode(settleMode)
	if err != nil {
		return err
	}

	logger.Info("starting mirror",
		"url", cfg.RootURL,
		"output", cfg.OutputDir,
		"concurrency", cfg.Concurrency,
		"maxDepth", maxDepth,
		"maxPages", cfg.MaxPages,
		"settle", settleMode,
	)

	f, err := frontier.New(cfg.RootURL,
		frontier.WithMaxDepth(maxDepth),
		frontier.WithIgnorePatterns(ignorePatterns),
		frontier.WithFollowPatterns(followPatterns),
	)
	if err != nil {
		return fmt.Errorf("invalid root URL: %w", err)
	}

	// Open the crawl history database.
	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// One browser process serves all workers; each worker gets its own tab.
	allocator := render.NewAllocator(ctx,
		render.AllocatorOptions{
			RemoteDebuggerURL: cfg.RemoteDebuggerURL,
			UserAgent:         cfg.UserAgent,
			Headless:          true,
		},
		render.WithRenderTimeout(cfg.RenderTimeout),
		render.WithSettle(render.Settle{
			Mode:     mode,
			Delay:    cfg.SettleDelay,
			Selector: waitSelector,
		}),
		render.WithExtraHeaders(headers),
	)
	defer allocator.Close()

	// An unusable browser is fatal before any page is attempted.
	if err := allocator.Check(ctx); err != nil {
		return err
	}

	acquirer := images.NewAcquirer(
		newImageClient(cfg.UserAgent, headers),
		filepath.Join(cfg.OutputDir, crawler.ImagesDirName),
		images.WithMaxImageSize(cfg.MaxImageSize),
	)

	orch := crawler.NewOrchestrator(f,
		func() crawler.Renderer { return allocator.NewSession() },
		acquirer,
		cfg.OutputDir,
		crawler.WithWorkers(cfg.Concurrency),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxRetries(cfg.MaxRetries),
		crawler.WithSameOriginImages(cfg.SameOriginImages),
		crawler.WithLogger(logger),
	)

	fmt.Printf("Mirroring %s...\n", cfg.RootURL)
	startTime := time.Now()

	mirrorReport, runErr := orch.Run(ctx)
	if mirrorReport == nil {
		return runErr
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Mirror completed in %s\n\n", elapsed.Round(time.Millisecond))

	if err := writeIndexFile(cfg.OutputDir, mirrorReport); err != nil {
		logger.Error("index generation failed", "error", err)
	}

	if err := outputReport(cfg, mirrorReport); err != nil {
		logger.Error("report failed", "error", err)
	}

	if err := saveMirrorReport(ctx, db, mirrorReport, logger); err != nil {
		logger.Error("failed to save run", "error", err)
	}

	// Per-URL failures do not fail the command; runErr is non-nil only for
	// crawl-level problems.
	return runErr
}

// newImageClient builds the HTTP client for image downloads, carrying the
// same user agent and auth headers as the browser.
func newImageClient(userAgent string, headers map[string]string) *http.Client {
	return &http.Client{
		Timeout: imageClientTimeout,
		Transport: &headerTransport{
			base:      http.DefaultTransport,
			userAgent: userAgent,
			headers:   headers,
		},
	}
}

// headerTransport injects the user agent and site headers into every
// outgoing request.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

// writeIndexFile generates the table of contents at the mirror root.
func writeIndexFile(outputDir string, mirrorReport *model.MirrorReport) error {
	path := filepath.Join(outputDir, report.IndexFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	return report.WriteIndex(file, mirrorReport)
}

// outputReport writes the crawl report in the requested format. The
// human-readable summary always goes to stdout; --json and --markdown add a
// structured report file next to the mirror (or at --report).
func outputReport(cfg *config.Config, mirrorReport *model.MirrorReport) error {
	writers := []report.Writer{report.NewSimpleWriter(os.Stdout)}

	if cfg.JSONReport || cfg.MarkdownReport {
		path := cfg.ReportFile
		if path == "" {
			name := defaultMarkdownReportName
			if cfg.JSONReport {
				name = defaultJSONReportName
			}
			path = filepath.Join(cfg.OutputDir, name)
		}

		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()

		if cfg.JSONReport {
			writers = append(writers, report.NewFullJSONWriter(file, getVersion(), report.WithPrettyPrint()))
		} else {
			writers = append(writers, report.NewMarkdownWriter(file))
		}
	}

	_, err := report.NewMultiWriter(writers...).Write(mirrorReport)
	return err
}

// saveMirrorReport saves the run to the history database. If db is nil,
// this function is a no-op.
func saveMirrorReport(ctx context.Context, db *database.CrawlDB, mirrorReport *model.MirrorReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveRun(ctx, mirrorReport)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to database", "id", id, "url", mirrorReport.RootURL)
	return nil
}
