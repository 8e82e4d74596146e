package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/seoscan/internal/fetch"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxPages is the page budget used when WithMaxPages is not given.
const DefaultMaxPages = 5

// Fetcher retrieves a page body as text. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Prober reports robots.txt and sitemap.xml presence for the host of a
// page. *probe.Prober implements it.
type Prober interface {
	Presence(ctx context.Context, pageURL string) model.Presence
}

// Spider crawls a site from a seed URL and produces one PageReport per
// successfully fetched page.
//
// The traversal is depth-first: the links of a page are followed in
// document order, and each link's subtree is finished before the next
// link is looked at. When the page budget runs out partway through, this
// order decides which pages are in the report.
//
// A Spider holds no per-crawl state and may run several crawls at once.
type Spider struct {
	fetcher Fetcher
	prober  Prober

	// maxPages is the number of URLs that may be fetched in one crawl.
	// Failed fetches count against it.
	maxPages int

	// workers is the number of concurrent fetches. 1 keeps the crawl
	// sequential.
	workers int

	hostMatch HostMatch
	filter    pathFilter
	logger    *slog.Logger
	metrics   *metrics.Recorder
	onPage    func(*model.PageReport)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget of a crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithWorkers sets how many pages may be fetched concurrently.
// Values below 1 are treated as 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithHostMatch sets how link hosts are compared with the current page's host.
func WithHostMatch(m HostMatch) SpiderOption {
	return func(s *Spider) {
		s.hostMatch = m
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.ignore = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only discovered URLs matching at least one pattern are crawled.
// The seed is always crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.follow = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) SpiderOption {
	return func(s *Spider) {
		s.metrics = m
	}
}

// WithPageCallback registers fn to be called for every new page record.
// Calls are serialized, also when several workers are running.
func WithPageCallback(fn func(*model.PageReport)) SpiderOption {
	return func(s *Spider) {
		s.onPage = fn
	}
}

// NewSpider creates a Spider that downloads pages with fetcher and checks
// hosts with prober.
func NewSpider(fetcher Fetcher, prober Prober, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   fetcher,
		prober:    prober,
		maxPages:  DefaultMaxPages,
		workers:   1,
		hostMatch: HostMatchContains,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// MaxPages returns the page budget of a crawl.
func (s *Spider) MaxPages() int {
	return s.maxPages
}

// candidate is a URL waiting to be visited.
type candidate struct {
	url   string
	depth int
}

// Crawl visits pages reachable from seedURL and returns their records in
// discovery order.
//
// Fetch, analysis and probe failures never stop the crawl; the page is
// skipped instead. The only errors are ErrInvalidSeed and the context's
// error when ctx ends early, in which case the records collected so far
// are returned with it.
func (s *Spider) Crawl(ctx context.Context, seedURL string) ([]*model.PageReport, error) {
	seed, err := validateSeed(seedURL)
	if err != nil {
		return nil, err
	}

	f := newFrontier(s.maxPages)
	start := time.Now()

	var pages []*model.PageReport
	if s.workers > 1 {
		pages, err = s.crawlConcurrent(ctx, seed, f)
	} else {
		pages, err = s.crawlSequential(ctx, seed, f)
	}

	s.logger.Debug("crawl finished",
		"seed", seed,
		"pages", len(pages),
		"reserved", f.size(),
		"elapsed", time.Since(start))
	return pages, err
}

// crawlSequential walks the site with an explicit stack. Children are pushed
// in reverse so they pop in document order, which gives the same visiting
// order as a recursive depth-first walk.
func (s *Spider) crawlSequential(ctx context.Context, seed string, f *frontier) ([]*model.PageReport, error) {
	pages := make([]*model.PageReport, 0)
	stack := []candidate{{url: seed}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if f.exhausted() {
			break
		}

		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		seq, ok := f.reserve(c.url)
		if !ok {
			continue
		}

		page, links := s.visit(ctx, c, seq)
		if page == nil {
			continue
		}
		pages = append(pages, page)
		s.notify(page)

		children := s.followable(c.url, links)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, candidate{url: children[i], depth: c.depth + 1})
		}
	}

	return pages, ctx.Err()
}

// crawlConcurrent fetches up to s.workers pages at once. When the pool is
// full the link is visited on the current goroutine, so a busy pool never
// blocks. Records are sorted by reservation order at the end.
func (s *Spider) crawlConcurrent(ctx context.Context, seed string, f *frontier) ([]*model.PageReport, error) {
	var (
		mu    sync.Mutex
		pages = make([]*model.PageReport, 0)
		g     errgroup.Group
	)
	g.SetLimit(s.workers)

	var walk func(c candidate)
	walk = func(c candidate) {
		if ctx.Err() != nil {
			return
		}
		seq, ok := f.reserve(c.url)
		if !ok {
			return
		}

		page, links := s.visit(ctx, c, seq)
		if page == nil {
			return
		}
		mu.Lock()
		pages = append(pages, page)
		s.notify(page)
		mu.Unlock()

		for _, link := range s.followable(c.url, links) {
			if f.exhausted() {
				return
			}
			child := candidate{url: link, depth: c.depth + 1}
			if !g.TryGo(func() error {
				walk(child)
				return nil
			}) {
				walk(child)
			}
		}
	}

	g.Go(func() error {
		walk(candidate{url: seed})
		return nil
	})
	_ = g.Wait() //nolint:errcheck // walkers never return errors

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Order < pages[j].Order
	})
	return pages, ctx.Err()
}

// visit fetches, analyzes and probes one reserved URL. It returns a nil
// record when any step fails.
func (s *Spider) visit(ctx context.Context, c candidate, seq int) (*model.PageReport, []string) {
	s.logger.Debug("crawling", "url", c.url, "depth", c.depth)

	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, c.url)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		s.metrics.FetchFailed(fetch.Reason(err))
		if ctx.Err() == nil {
			s.logger.Warn("failed to fetch page", "url", c.url, "error", err)
		}
		return nil, nil
	}

	analysis, err := Analyze(body, c.url)
	if err != nil {
		s.logger.Warn("failed to analyze page", "url", c.url, "error", err)
		return nil, nil
	}

	var presence model.Presence
	if s.prober != nil {
		presence = s.prober.Presence(ctx, c.url)
	}

	page := model.NewPageReport(c.url, analysis.Signals, presence, c.depth, seq)
	s.metrics.PageCrawled()
	return page, analysis.Links
}

// followable returns the normalized links of pageURL that stay on the
// page's host and pass the path patterns, in their original order.
func (s *Spider) followable(pageURL string, links []string) []string {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	result := make([]string, 0, len(links))
	for _, link := range links {
		normalized, ok := normalizeURL(link)
		if !ok {
			continue
		}
		u, err := url.Parse(normalized)
		if err != nil {
			continue
		}
		if !s.hostMatch.sameHost(page.Host, u.Host) {
			continue
		}
		if !s.filter.allows(normalized) {
			continue
		}
		result = append(result, normalized)
	}
	return result
}

func (s *Spider) notify(page *model.PageReport) {
	if s.onPage != nil {
		s.onPage(page)
	}
}

// validateSeed checks that seedURL is an absolute http(s) URL with a host
// and returns its normalized form.
func validateSeed(seedURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidSeed, seedURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidSeed, seedURL)
	}
	normalized, ok := normalizeURL(u.String())
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeed, seedURL)
	}
	return normalized, nil
}
