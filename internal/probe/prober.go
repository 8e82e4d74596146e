package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/benjaminestes/robots/v2"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"golang.org/x/sync/singleflight"
)

// Well-known paths checked for every crawled host.
const (
	RobotsPath  = "robots.txt"
	SitemapPath = "sitemap.xml"
)

// errNotAbsolute is returned by WellKnownURL for relative or host-less URLs.
var errNotAbsolute = errors.New("url must be absolute http or https")

// Prober runs presence probes and caches their results.
// A Prober is safe for concurrent use.
type Prober struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	metrics   *metrics.Recorder

	mu    sync.Mutex
	cache map[string]bool

	// group collapses concurrent probes of the same URL into one request.
	group singleflight.Group
}

// Option configures a Prober.
type Option func(*Prober)

// WithUserAgent sets the User-Agent header for probe requests.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Prober) {
		p.metrics = m
	}
}

// New creates a Prober that sends requests with client.
// A nil client means http.DefaultClient.
func New(client *http.Client, opts ...Option) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	p := &Prober{
		client: client,
		logger: slog.Default(),
		cache:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe reports whether scheme://host/wellKnownPath answers with a 2xx
// status, where scheme and host (including any port) come from pageURL.
func (p *Prober) Probe(ctx context.Context, pageURL, wellKnownPath string) bool {
	target, err := WellKnownURL(pageURL, wellKnownPath)
	if err != nil {
		p.logger.Debug("probe skipped", "url", pageURL, "error", err)
		return false
	}
	return p.probeURL(ctx, target, wellKnownPath)
}

// HasRobots reports whether the host of pageURL serves robots.txt.
// The location is derived with the robots package and then put in
// WellKnownURL form, so it shares its cache entry with
// Probe(ctx, pageURL, RobotsPath).
func (p *Prober) HasRobots(ctx context.Context, pageURL string) bool {
	located, err := robots.Locate(pageURL)
	if err == nil {
		located, err = WellKnownURL(located, RobotsPath)
	}
	if err != nil {
		p.logger.Debug("robots.txt location failed", "url", pageURL, "error", err)
		return false
	}
	return p.probeURL(ctx, located, RobotsPath)
}

// HasSitemap reports whether the host of pageURL serves sitemap.xml.
func (p *Prober) HasSitemap(ctx context.Context, pageURL string) bool {
	return p.Probe(ctx, pageURL, SitemapPath)
}

// Presence runs both probes for the host of pageURL.
func (p *Prober) Presence(ctx context.Context, pageURL string) model.Presence {
	return model.Presence{
		Robots:  p.HasRobots(ctx, pageURL),
		Sitemap: p.HasSitemap(ctx, pageURL),
	}
}

// probeURL returns the cached result for target or performs the request.
func (p *Prober) probeURL(ctx context.Context, target, label string) bool {
	p.mu.Lock()
	found, ok := p.cache[target]
	p.mu.Unlock()
	if ok {
		return found
	}

	v, _, _ := p.group.Do(target, func() (any, error) {
		p.mu.Lock()
		if found, ok := p.cache[target]; ok {
			p.mu.Unlock()
			return found, nil
		}
		p.mu.Unlock()

		found, cacheable := p.request(ctx, target)
		if cacheable {
			p.mu.Lock()
			p.cache[target] = found
			p.mu.Unlock()
		}
		p.metrics.ProbeResult(label, found)
		p.logger.Debug("probe finished", "url", target, "found", found)
		return found, nil
	})

	found, _ = v.(bool) //nolint:errcheck // the group only stores bools
	return found
}

// request performs one GET. The second result is false when the outcome
// is due to the caller's context and must not be cached.
func (p *Prober) request(ctx context.Context, target string) (found, cacheable bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, true
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, ctx.Err() == nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // drain for reuse

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, true
}

// WellKnownURL builds scheme://host/path from pageURL. The host keeps an
// explicit port so that probes reach the same server as the page; the
// scheme's default port is dropped.
func WellKnownURL(pageURL, path string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", errNotAbsolute
	}
	host := strings.ToLower(u.Host)
	if port := u.Port(); (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return scheme + "://" + host + "/" + strings.TrimPrefix(path, "/"), nil
}
