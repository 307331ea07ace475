package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docmirror/docmirror/internal/convert"
	"github.com/docmirror/docmirror/internal/frontier"
	"github.com/docmirror/docmirror/internal/images"
	"github.com/docmirror/docmirror/internal/model"
	"github.com/docmirror/docmirror/internal/render"
)

// nowFunc is replaced in tests for deterministic report timestamps.
var nowFunc = time.Now

// errCrossOriginImage marks images skipped by the same-origin-images policy.
var errCrossOriginImage = errors.New("cross-origin image skipped by policy")

// State is the orchestrator lifecycle phase.
type State string

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = "idle"

	// StateRunning means workers are actively rendering pages.
	StateRunning State = "running"

	// StateDraining means no new URLs are admitted (budget reached or
	// cancellation) but in-flight pages are finishing.
	StateDraining State = "draining"

	// StateDone means the crawl has finished and the report is final.
	StateDone State = "done"
)

// Renderer renders one URL at a time. *render.Session implements it; tests
// substitute fakes.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*model.RenderedPage, error)
	Close()
}

// SessionFactory creates a fresh Renderer. Workers call it at startup and
// again whenever a render error invalidates their session.
type SessionFactory func() Renderer

// Orchestrator runs the crawl: a fixed pool of workers pulls URLs from the
// frontier, renders them, converts them to markdown, and writes them under
// the output directory. A failed URL never aborts the crawl.
type Orchestrator struct {
	frontier  *frontier.Frontier
	sessions  SessionFactory
	converter *convert.Converter
	acquirer  *images.Acquirer
	logger    *slog.Logger

	outputDir        string
	workers          int
	maxPages         int
	maxRetries       int
	sameOriginImages bool

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	inflight int
	admitted int
	report   *model.MirrorReport
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the number of parallel render workers.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMaxPages caps the number of pages visited. Negative means unlimited.
func WithMaxPages(n int) Option {
	return func(o *Orchestrator) {
		o.maxPages = n
	}
}

// WithMaxRetries sets the per-URL retry budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithSameOriginImages skips images hosted outside the crawl origin.
// Images are fetched from any origin by default because documentation sites
// commonly serve assets from CDNs.
func WithSameOriginImages(v bool) Option {
	return func(o *Orchestrator) {
		o.sameOriginImages = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the crawl components together. The frontier carries
// the root URL and filtering rules; the factory supplies one browser session
// per worker.
func NewOrchestrator(f *frontier.Frontier, sessions SessionFactory, acquirer *images.Acquirer, outputDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		frontier:   f,
		sessions:   sessions,
		converter:  convert.NewConverter(),
		acquirer:   acquirer,
		logger:     slog.Default(),
		outputDir:  outputDir,
		workers:    4,
		maxPages:   -1,
		maxRetries: 3,
		state:      StateIdle,
	}
	o.cond = sync.NewCond(&o.mu)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the crawl until the frontier is exhausted, the page budget is
// reached, or ctx is cancelled. It always returns a report; the error is
// non-nil only for failures that prevented the crawl from running at all.
func (o *Orchestrator) Run(ctx context.Context) (*model.MirrorReport, error) {
	if err := os.MkdirAll(o.outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	o.mu.Lock()
	o.state = StateRunning
	o.report = model.NewMirrorReport(o.frontier.Root(), o.outputDir)
	o.mu.Unlock()

	// Cancellation must wake workers blocked on the condition variable.
	stop := context.AfterFunc(ctx, func() {
		o.mu.Lock()
		if o.state == StateRunning {
			o.state = StateDraining
		}
		o.mu.Unlock()
		o.cond.Broadcast()
	})
	defer stop()

	g := new(errgroup.Group)
	for i := 0; i < o.workers; i++ {
		worker := i
		g.Go(func() error {
			return o.runWorker(ctx, worker)
		})
	}
	err := g.Wait()

	o.mu.Lock()
	o.state = StateDone
	report := o.report
	report.Cancelled = ctx.Err() != nil
	report.FinishedAt = nowFunc()
	report.CrossOriginLinks = o.frontier.CrossOrigin()
	report.Images = o.acquirer.Records()
	report.ImageFailures = o.acquirer.Failures()
	o.mu.Unlock()

	o.logger.Info("crawl finished",
		"pages_succeeded", report.SucceededCount(),
		"pages_failed", report.FailedCount(),
		"images", len(report.Images),
		"cancelled", report.Cancelled,
	)
	return report, err
}

// runWorker is one render worker. It owns a single browser session and
// replaces it after errors that invalidate the tab.
func (o *Orchestrator) runWorker(ctx context.Context, id int) error {
	session := o.sessions()
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	logger := o.logger.With("worker", id)
	for {
		entry, ok := o.next(ctx)
		if !ok {
			return nil
		}

		needNewSession := o.process(ctx, session, entry, logger)
		o.finish()

		if needNewSession {
			session.Close()
			session = o.sessions()
		}
	}
}

// next blocks until work is available, returning ok=false when the crawl is
// over. A worker waiting here holds no session resources hostage: other
// workers keep discovering URLs that will wake it.
func (o *Orchestrator) next(ctx context.Context) (frontier.Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return frontier.Entry{}, false
		}

		entry, ok := o.frontier.PopNext()
		if ok {
			// Retried entries were admitted on their first pop and do
			// not count against the page budget again.
			if entry.Attempts == 0 {
				if o.maxPages >= 0 && o.admitted >= o.maxPages {
					if o.state == StateRunning {
						o.state = StateDraining
					}
					continue
				}
				o.admitted++
			}
			o.inflight++
			return entry, true
		}

		if o.inflight == 0 {
			if o.state == StateRunning {
				o.state = StateDraining
			}
			o.cond.Broadcast()
			return frontier.Entry{}, false
		}
		o.cond.Wait()
	}
}

// finish marks one unit of work complete and wakes waiting workers, who may
// now find newly discovered URLs or detect that the crawl is drained.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.inflight--
	o.mu.Unlock()
	o.cond.Broadcast()
}

// process renders, converts, and writes one page. It returns true when the
// worker must replace its browser session before the next render.
func (o *Orchestrator) process(ctx context.Context, session Renderer, entry frontier.Entry, logger *slog.Logger) bool {
	logger.Debug("rendering page", "url", entry.URL, "depth", entry.Depth, "attempt", entry.Attempts)

	page, err := session.Render(ctx, entry.URL)
	if err != nil {
		return o.handleRenderError(ctx, entry, err, logger)
	}

	o.frontier.MarkVisited(entry.URL)
	o.discoverLinks(page, entry)

	mdPath, err := o.writePage(ctx, page)
	if err != nil {
		logger.Warn("page conversion failed", "url", entry.URL, "error", err)
		o.appendResult(model.CrawlResult{
			URL:     entry.URL,
			Status:  model.StatusFailed,
			Reason:  err.Error(),
			Retries: entry.Attempts,
		})
		return false
	}

	title := page.Title
	if title == "" {
		title = convert.ExtractTitle(page.HTML)
	}
	o.appendResult(model.CrawlResult{
		URL:            entry.URL,
		Title:          title,
		MarkdownPath:   mdPath.path,
		Status:         model.StatusSuccess,
		Retries:        entry.Attempts,
		ImagesEmbedded: mdPath.imagesEmbedded,
	})
	logger.Info("page mirrored", "url", entry.URL, "path", mdPath.path, "images", mdPath.imagesEmbedded)
	return false
}

// handleRenderError applies the retry policy. Transient failures within the
// retry budget go back on the frontier; everything else is terminal for the
// URL but never for the crawl.
func (o *Orchestrator) handleRenderError(ctx context.Context, entry frontier.Entry, err error, logger *slog.Logger) bool {
	if ctx.Err() != nil {
		// Cancellation, not a page failure. The URL stays unreported.
		return false
	}

	var rerr *render.Error
	transient := errors.As(err, &rerr) && rerr.Transient()
	needNewSession := rerr != nil && rerr.NeedsNewSession()

	if transient && entry.Attempts < o.maxRetries {
		entry.Attempts++
		o.frontier.Requeue(entry)
		logger.Warn("render failed, retrying",
			"url", entry.URL, "attempt", entry.Attempts, "error", err)
		return needNewSession
	}

	o.frontier.MarkVisited(entry.URL)
	o.appendResult(model.CrawlResult{
		URL:     entry.URL,
		Status:  model.StatusFailed,
		Reason:  err.Error(),
		Retries: entry.Attempts,
	})
	logger.Error("page failed terminally", "url", entry.URL, "retries", entry.Attempts, "error", err)
	return needNewSession
}

// discoverLinks feeds every link on the rendered page back into the
// frontier and wakes waiting workers.
func (o *Orchestrator) discoverLinks(page *model.RenderedPage, entry frontier.Entry) {
	links, err := convert.ExtractLinks(page.HTML, page.URL)
	if err != nil {
		o.logger.Warn("link extraction failed", "url", page.URL, "error", err)
		return
	}

	added := 0
	for _, link := range links {
		if o.frontier.Enqueue(link, entry.URL, entry.Depth+1) {
			added++
		}
	}
	if added > 0 {
		o.cond.Broadcast()
	}
}

// writtenPage carries the outcome of writePage.
type writtenPage struct {
	path           string
	imagesEmbedded int
}

// writePage converts the rendered page to markdown and writes it under the
// output directory with its provenance header.
func (o *Orchestrator) writePage(ctx context.Context, page *model.RenderedPage) (writtenPage, error) {
	mdPath, err := OutputPath(page.URL)
	if err != nil {
		return writtenPage{}, err
	}

	result, err := o.converter.Convert(page, convert.Resolvers{
		Image: func(absURL string) (string, error) {
			if o.sameOriginImages && !strings.HasPrefix(absURL, "data:") &&
				!model.SameOrigin(o.frontier.Root(), absURL) {
				return "", errCrossOriginImage
			}
			rec, err := o.acquirer.Acquire(ctx, absURL)
			if err != nil {
				return "", err
			}
			return RelativePath(mdPath, ImagesDirName+"/"+rec.LocalPath), nil
		},
		Link: func(absURL string) (string, bool) {
			if !model.SameOrigin(o.frontier.Root(), absURL) {
				return "", false
			}
			target, err := OutputPath(absURL)
			if err != nil {
				return "", false
			}
			return RelativePath(mdPath, target), true
		},
	})
	if err != nil {
		return writtenPage{}, err
	}

	fullPath := filepath.Join(o.outputDir, filepath.FromSlash(mdPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return writtenPage{}, fmt.Errorf("create page directory: %w", err)
	}

	content := SourceHeader(page.URL) + result.Markdown
	if err := os.WriteFile(fullPath, []byte(content), 0600); err != nil {
		return writtenPage{}, fmt.Errorf("write page file: %w", err)
	}

	return writtenPage{path: mdPath, imagesEmbedded: result.ImagesEmbedded}, nil
}

// appendResult records a per-URL outcome on the report.
func (o *Orchestrator) appendResult(result model.CrawlResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.report.Results = append(o.report.Results, result)
}
