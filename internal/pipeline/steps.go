package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/fetch"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/probe"
)

// Crawler walks a site from a seed URL. *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string) ([]*model.PageReport, error)
	MaxPages() int
}

// Store persists finished crawl reports. *database.CrawlDB implements it.
type Store interface {
	SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error)
}

// CrawlStep runs the crawler from the report's seed and stores the page
// records on the report.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlMetrics counts finished crawls on m.
func WithCrawlMetrics(m *metrics.Recorder) CrawlStepOption {
	return func(s *CrawlStep) {
		s.metrics = m
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
//
// A crawl cut short by cancellation keeps its partial pages and is not a
// step failure; the report is marked instead. An invalid seed fails the step.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	report.Limit = s.crawler.MaxPages()

	pages, err := s.crawler.Crawl(ctx, report.Seed)
	for _, page := range pages {
		report.AddPage(page)
	}
	s.metrics.CrawlFinished(err)

	switch {
	case err == nil:
		s.logger.Info("crawl completed",
			"seed", report.Seed,
			"pages", len(pages),
		)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("crawl stopped early",
			"seed", report.Seed,
			"pages", len(pages),
			"reason", err,
		)
		markCancelled(report, err)
		return nil
	default:
		return fmt.Errorf("crawl %s: %w", report.Seed, err)
	}
}

// SummaryStep derives the severity-ranked findings of the crawled pages.
type SummaryStep struct {
	logger *slog.Logger
}

// NewSummaryStep creates a new summary step.
func NewSummaryStep(logger *slog.Logger) *SummaryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryStep{logger: logger}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do builds report.Summary from report.Pages.
func (s *SummaryStep) Do(_ context.Context, report *model.CrawlReport) error {
	report.Summary = model.NewSummary(report)
	s.logger.Debug("summary built",
		"seed", report.Seed,
		"findings", report.Summary.TotalFindings(),
		"pages_with_issues", report.Summary.PagesWithIssues,
	)
	return nil
}

// SaveStep writes the report to the crawl history.
type SaveStep struct {
	store  Store
	logger *slog.Logger
}

// NewSaveStep creates a step that saves reports to store.
func NewSaveStep(store Store, logger *slog.Logger) *SaveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the report.
// Reports without a host (the seed did not parse) are not kept.
func (s *SaveStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if report.Host == "" {
		s.logger.Debug("report has no host, not saved", "seed", report.Seed)
		return nil
	}
	if report.Summary == nil {
		report.Summary = model.NewSummary(report)
	}
	id, err := s.store.SaveCrawlReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}
	s.logger.Debug("crawl report saved", "seed", report.Seed, "id", id)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// MaxPages is the page budget of the crawl.
	MaxPages int

	// Workers is the number of concurrent fetches.
	Workers int

	// HostMatch decides which links stay on the site.
	HostMatch crawler.HostMatch

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// SiteHost is the host the cookie and headers belong to.
	SiteHost string

	// IgnorePatterns are URL path patterns to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path patterns to follow during crawling.
	FollowPatterns []string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Metrics receives crawl, fetch and probe counters. May be nil.
	Metrics *metrics.Recorder

	// Logger is passed to every component. Defaults to slog.Default.
	Logger *slog.Logger

	// OnPage is called for every page record as it is produced.
	OnPage func(*model.PageReport)

	// Store, when set, adds a save step at the end of the pipeline.
	Store Store
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineMaxPages sets the page budget.
func WithPipelineMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = maxPages
	}
}

// WithPipelineWorkers sets the number of concurrent fetches.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

// WithPipelineHostMatch sets the host matching mode.
func WithPipelineHostMatch(m crawler.HostMatch) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HostMatch = m
	}
}

// WithPipelineTimeout sets the per-request timeout.
func WithPipelineTimeout(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Timeout = d
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineSiteHost restricts the cookie and headers to host.
func WithPipelineSiteHost(host string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SiteHost = host
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineMetrics sets the metrics recorder.
func WithPipelineMetrics(m *metrics.Recorder) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Metrics = m
	}
}

// WithPipelineLogger sets the logger handed to the components.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// WithPipelinePageCallback sets a progress callback for page records.
func WithPipelinePageCallback(fn func(*model.PageReport)) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OnPage = fn
	}
}

// WithPipelineStore saves every report to store.
func WithPipelineStore(store Store) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// DefaultPipeline creates the standard crawl pipeline: crawl, summary and,
// when a store is configured, save.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts crawl configuration options.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		MaxPages:    crawler.DefaultMaxPages,
		Workers:     1,
		HostMatch:   crawler.HostMatchContains,
		Timeout:     fetch.DefaultTimeout,
		UserAgent:   fetch.DefaultUserAgent,
		MaxBodySize: fetch.MaxBodySize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithCookie(cfg.Cookie),
		fetch.WithHeaders(cfg.Headers),
		fetch.WithSiteHost(cfg.SiteHost),
		fetch.WithLogger(cfg.Logger),
	)

	// Probes share the decorated client so they look like the crawler.
	prober := probe.New(fetcher.Client(),
		probe.WithUserAgent(fetcher.UserAgent()),
		probe.WithLogger(cfg.Logger),
		probe.WithMetrics(cfg.Metrics),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithHostMatch(cfg.HostMatch),
		crawler.WithLogger(cfg.Logger),
		crawler.WithMetrics(cfg.Metrics),
	}
	if len(cfg.IgnorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(cfg.IgnorePatterns))
	}
	if len(cfg.FollowPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(cfg.FollowPatterns))
	}
	if cfg.OnPage != nil {
		spiderOpts = append(spiderOpts, crawler.WithPageCallback(cfg.OnPage))
	}

	p := New(pipelineOpts...)
	p.AddSteps(
		NewCrawlStep(crawler.NewSpider(fetcher, prober, spiderOpts...),
			WithCrawlLogger(cfg.Logger),
			WithCrawlMetrics(cfg.Metrics),
		),
		NewSummaryStep(cfg.Logger),
	)
	if cfg.Store != nil {
		p.AddStep(NewSaveStep(cfg.Store, cfg.Logger))
	}

	return p
}
