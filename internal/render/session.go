package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/docmirror/docmirror/internal/model"
)

// defaultUserAgent is sent when no user agent is configured.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// AllocatorOptions configures the browser process.
type AllocatorOptions struct {
	// RemoteDebuggerURL connects to an already running browser instead of
	// launching one. Empty means launch a local headless Chrome.
	RemoteDebuggerURL string

	// UserAgent overrides the browser user agent. Empty uses a default
	// desktop Chrome string.
	UserAgent string

	// Headless can be disabled for local debugging.
	Headless bool
}

// Allocator owns the browser process shared by all sessions.
type Allocator struct {
	ctx    context.Context
	cancel context.CancelFunc

	timeout time.Duration
	settle  Settle
	headers map[string]string
}

// AllocOption configures an Allocator.
type AllocOption func(*Allocator)

// WithRenderTimeout sets the per-page render deadline.
func WithRenderTimeout(d time.Duration) AllocOption {
	return func(a *Allocator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithSettle sets the page-settling strategy for all sessions.
func WithSettle(s Settle) AllocOption {
	return func(a *Allocator) {
		a.settle = s
	}
}

// WithExtraHeaders sets HTTP headers sent with every browser request,
// typically for authenticated documentation sites.
func WithExtraHeaders(headers map[string]string) AllocOption {
	return func(a *Allocator) {
		a.headers = headers
	}
}

// NewAllocator prepares the browser allocator. The browser itself launches
// lazily with the first session.
func NewAllocator(ctx context.Context, opts AllocatorOptions, options ...AllocOption) *Allocator {
	a := &Allocator{
		timeout: 60 * time.Second,
		settle:  Settle{Mode: SettleDelay},
	}
	for _, opt := range options {
		opt(a)
	}

	if opts.RemoteDebuggerURL != "" {
		a.ctx, a.cancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteDebuggerURL)
		return a
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(ua),
	)
	a.ctx, a.cancel = chromedp.NewExecAllocator(ctx, execOpts...)
	return a
}

// Check launches a throwaway tab to verify the browser starts at all.
// A failure here is fatal for the crawl, unlike per-page render errors.
func (a *Allocator) Check(ctx context.Context) error {
	tabCtx, cancel := chromedp.NewContext(a.ctx)
	defer cancel()

	checkCtx, checkCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer checkCancel()

	stop := context.AfterFunc(ctx, checkCancel)
	defer stop()

	if err := chromedp.Run(checkCtx); err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	return nil
}

// NewSession opens a fresh browser tab.
func (a *Allocator) NewSession() *Session {
	tabCtx, cancel := chromedp.NewContext(a.ctx)
	return &Session{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: a.timeout,
		settle:  a.settle,
		headers: a.headers,
	}
}

// Close shuts down the browser and every remaining session.
func (a *Allocator) Close() {
	a.cancel()
}

// Session is one browser tab. A session is owned by a single worker and is
// not safe for concurrent use. After a render error with NeedsNewSession,
// the session must be closed and replaced.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	timeout time.Duration
	settle  Settle
	headers map[string]string
}

// Render navigates to pageURL, waits for the page to settle, and captures
// the post-JavaScript DOM. crawlCtx bounds the whole crawl; the per-page
// timeout is layered on top of it.
func (s *Session) Render(crawlCtx context.Context, pageURL string) (*model.RenderedPage, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	// Crawl cancellation aborts an in-flight render.
	stop := context.AfterFunc(crawlCtx, cancel)
	defer stop()

	if len(s.headers) > 0 {
		headers := make(network.Headers, len(s.headers))
		for k, v := range s.headers {
			headers[k] = v
		}
		if err := chromedp.Run(ctx,
			network.Enable(),
			network.SetExtraHTTPHeaders(headers),
		); err != nil {
			return nil, classify(crawlCtx, pageURL, err)
		}
	}

	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(pageURL))
	if err != nil {
		return nil, classify(crawlCtx, pageURL, err)
	}
	if resp != nil && resp.Status >= 400 {
		return nil, httpError(pageURL, int(resp.Status))
	}

	var html, title string
	actions := append(s.settle.actions(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, classify(crawlCtx, pageURL, err)
	}

	status := 0
	if resp != nil {
		status = int(resp.Status)
	}
	return &model.RenderedPage{
		URL:    pageURL,
		Title:  title,
		HTML:   html,
		Status: status,
	}, nil
}

// Close releases the browser tab.
func (s *Session) Close() {
	s.cancel()
}
