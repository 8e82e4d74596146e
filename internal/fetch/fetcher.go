package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single request including reading the body.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize is the default cap on how much of a response body is read.
	MaxBodySize int64 = 5 * 1024 * 1024

	// DefaultUserAgent identifies the crawler to the sites it visits.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/nao1215/seoscan)"

	// maxRedirects limits redirect chains to prevent loops.
	maxRedirects = 10
)

// Fetcher downloads pages over HTTP and returns their bodies as UTF-8 text.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string
	siteHost    string
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient uses client instead of building one.
// The cookie and header options still wrap its transport.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets how many bytes of a body are read at most.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithCookie sets a raw cookie string (e.g., "session=abc") sent with
// requests to the site host. See WithSiteHost.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sets extra headers sent with requests to the site host.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithSiteHost limits the cookie and headers to requests for host
// ("host" or "host:port"). Without it they go to whatever host a request
// names, but never follow a redirect to another host.
func WithSiteHost(host string) Option {
	return func(f *Fetcher) {
		f.siteHost = canonicalSiteHost(host)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: MaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(), //nolint:forcetypeassert // DefaultTransport is always *http.Transport
			Timeout:   f.timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	if f.cookie != "" || len(f.headers) > 0 {
		base := f.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *f.client
		wrapped.Transport = &headerInjectingTransport{
			base:    base,
			cookie:  f.cookie,
			headers: f.headers,
			host:    f.siteHost,
		}
		f.client = &wrapped
	}

	return f
}

// Client returns the underlying HTTP client, including the cookie and
// header decoration. Probes share it so they look like the crawler.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent returns the User-Agent the fetcher sends.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Fetch retrieves pageURL and returns its body as UTF-8 text.
//
// The request fails with ErrRequest on transport errors, ErrUnexpectedStatus
// on a non-2xx answer, ErrNotText when the body is not textual and
// ErrReadBody when reading the body fails. Bodies larger than the configured
// maximum are truncated.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("fetched page",
		"url", pageURL,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return "", fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, pageURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || !isTextual(mediaType) {
			return "", fmt.Errorf("%w: %q", ErrNotText, contentType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadBody, err)
	}

	if contentType == "" {
		contentType = http.DetectContentType(body)
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || !isTextual(mediaType) {
			return "", fmt.Errorf("%w: sniffed %q", ErrNotText, contentType)
		}
	}

	return decodeBody(body, contentType), nil
}
