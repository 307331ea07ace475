package frontier

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docmirror/docmirror/internal/model"
)

// Entry is one unit of crawl work. It is created when a link is discovered
// and consumed exactly once when popped for visitation.
type Entry struct {
	// URL is the normalized URL to visit.
	URL string

	// DiscoveredFrom is the normalized URL of the page that linked here.
	// Empty for the crawl root.
	DiscoveredFrom string

	// Depth is the link distance from the crawl root.
	Depth int

	// Attempts counts failed render attempts for this URL. It is bumped by
	// the orchestrator before a Requeue; the visited set is not involved.
	Attempts int
}

// Frontier tracks queued and visited URLs with at-most-once visitation per
// normalized URL. Discovery order is preserved (breadth-first), except that
// retried entries are served before newly discovered ones.
type Frontier struct {
	mu sync.Mutex

	// origin is the crawl root; only URLs matching its scheme+host are accepted.
	origin string

	// queue holds entries in discovery order. idx is the read position;
	// consumed entries are not removed so len(queue)-idx is the backlog.
	queue []Entry
	idx   int

	// retry is the priority sub-queue: entries here are popped before queue.
	retry []Entry

	// seen contains every normalized URL ever accepted (queued or visited).
	// The union only grows.
	seen map[string]bool

	// visited contains URLs for which MarkVisited was called.
	visited map[string]bool

	// crossOrigin maps rejected cross-origin URLs to the page that first
	// linked them. Recorded for reporting, never queued.
	crossOrigin map[string]string

	maxDepth       int
	ignorePatterns []string
	followPatterns []string
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithMaxDepth limits how deep links are followed from the root.
// Depth 0 means only the root page; a negative value means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *Frontier) {
		f.maxDepth = depth
	}
}

// WithIgnorePatterns sets URL path glob patterns that are never queued.
func WithIgnorePatterns(patterns []string) Option {
	return func(f *Frontier) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts queuing to URL paths matching at least one
// pattern. Empty means all paths are allowed (subject to ignore patterns).
func WithFollowPatterns(patterns []string) Option {
	return func(f *Frontier) {
		f.followPatterns = patterns
	}
}

// New creates a frontier rooted at rootURL. The root itself is enqueued at
// depth 0, so a fresh frontier always has exactly one entry.
func New(rootURL string, opts ...Option) (*Frontier, error) {
	normalized, err := model.NormalizeURL(rootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL: %w", err)
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q (need http or https)", u.Scheme)
	}

	f := &Frontier{
		origin:      normalized,
		seen:        make(map[string]bool),
		visited:     make(map[string]bool),
		crossOrigin: make(map[string]string),
		maxDepth:    -1,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.seen[normalized] = true
	f.queue = append(f.queue, Entry{URL: normalized, Depth: 0})
	return f, nil
}

// Root returns the normalized crawl root.
func (f *Frontier) Root() string {
	return f.origin
}

// Enqueue adds a newly discovered URL. It returns true only when the
// normalized URL was accepted as new work. Duplicates, cross-origin links,
// depth overflows, and pattern-filtered paths return false; duplicates are
// dropped silently, cross-origin links are recorded for reporting.
func (f *Frontier) Enqueue(rawURL, discoveredFrom string, depth int) bool {
	normalized, err := model.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !model.SameOrigin(f.origin, normalized) {
		if _, ok := f.crossOrigin[normalized]; !ok {
			f.crossOrigin[normalized] = discoveredFrom
		}
		return false
	}
	if f.maxDepth >= 0 && depth > f.maxDepth {
		return false
	}
	if !f.pathAllowed(u.Path) {
		return false
	}
	if f.seen[normalized] {
		return false
	}

	f.seen[normalized] = true
	f.queue = append(f.queue, Entry{
		URL:            normalized,
		DiscoveredFrom: discoveredFrom,
		Depth:          depth,
	})
	return true
}

// PopNext returns the next entry to visit, or ok=false when no work is
// queued. Retried entries are served before newly discovered ones.
func (f *Frontier) PopNext() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.retry) > 0 {
		e := f.retry[0]
		f.retry = f.retry[1:]
		return e, true
	}
	if f.idx < len(f.queue) {
		e := f.queue[f.idx]
		f.idx++
		return e, true
	}
	return Entry{}, false
}

// Requeue puts an entry back at the front of the retry sub-queue. It bypasses
// the seen-check: retry state is tracked on the entry itself, separately from
// the visited set.
func (f *Frontier) Requeue(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retry = append([]Entry{e}, f.retry...)
}

// MarkVisited records that a popped URL has been processed, regardless of
// whether the visit succeeded. Idempotent.
func (f *Frontier) MarkVisited(rawURL string) {
	normalized, err := model.NormalizeURL(rawURL)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[normalized] = true
}

// Pending returns the number of entries waiting to be popped.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retry) + len(f.queue) - f.idx
}

// VisitedCount returns the number of URLs marked visited so far.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// CrossOrigin returns the recorded cross-origin links in sorted order.
func (f *Frontier) CrossOrigin() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	links := make([]string, 0, len(f.crossOrigin))
	for link := range f.crossOrigin {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

// pathAllowed applies ignore/follow glob patterns to a URL path.
// Callers must hold f.mu.
func (f *Frontier) pathAllowed(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(f.followPatterns) > 0 {
		for _, pattern := range f.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}
	return true
}

// matchPattern checks a URL path against a glob pattern.
// "/admin/*" matches any path under /admin, "*.pdf" matches by extension,
// and other patterns go through filepath.Match semantics.
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
