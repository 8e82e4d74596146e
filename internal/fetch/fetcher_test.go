package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// TestFetch tests the success and failure outcomes of Fetch.
func TestFetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><title>Home</title></html>"))
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in ISO-8859-1.
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Run("returns body for 2xx html", func(t *testing.T) {
		t.Parallel()

		body, err := New().Fetch(context.Background(), server.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(body, "<title>Home</title>") {
			t.Errorf("unexpected body %q", body)
		}
	})

	t.Run("non-2xx is a failure", func(t *testing.T) {
		t.Parallel()

		_, err := New().Fetch(context.Background(), server.URL+"/error")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
		if Reason(err) != "status" {
			t.Errorf("expected reason status, got %q", Reason(err))
		}
	})

	t.Run("non-text body is a failure", func(t *testing.T) {
		t.Parallel()

		_, err := New().Fetch(context.Background(), server.URL+"/image")
		if !errors.Is(err, ErrNotText) {
			t.Errorf("expected ErrNotText, got %v", err)
		}
	})

	t.Run("transport error is a failure", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithTimeout(time.Second)).Fetch(context.Background(), "http://127.0.0.1:1/")
		if !errors.Is(err, ErrRequest) {
			t.Errorf("expected ErrRequest, got %v", err)
		}
		if Reason(err) != "transport" {
			t.Errorf("expected reason transport, got %q", Reason(err))
		}
	})

	t.Run("decodes declared charset", func(t *testing.T) {
		t.Parallel()

		body, err := New().Fetch(context.Background(), server.URL+"/latin1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body != "café" {
			t.Errorf("got %q, expected %q", body, "café")
		}
	})

	t.Run("truncates body at max size", func(t *testing.T) {
		t.Parallel()

		body, err := New(WithMaxBodySize(100)).Fetch(context.Background(), server.URL+"/large")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(body) != 100 {
			t.Errorf("expected 100 bytes, got %d", len(body))
		}
	})

	t.Run("cancelled context fails", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New().Fetch(ctx, server.URL+"/ok")
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

// TestFetcherInjectsHeaders tests that cookie and headers reach the server.
func TestFetcherInjectsHeaders(t *testing.T) {
	t.Parallel()

	type seen struct {
		cookie, custom, ua string
	}
	got := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- seen{
			cookie: r.Header.Get("Cookie"),
			custom: r.Header.Get("X-Test"),
			ua:     r.Header.Get("User-Agent"),
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(server.Close)

	f := New(
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Test": "yes"}),
		WithUserAgent("test-agent"),
	)
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := <-got
	if s.cookie != "session=abc" {
		t.Errorf("got cookie %q", s.cookie)
	}
	if s.custom != "yes" {
		t.Errorf("got X-Test %q", s.custom)
	}
	if s.ua != "test-agent" {
		t.Errorf("got User-Agent %q", s.ua)
	}
	if f.UserAgent() != "test-agent" {
		t.Errorf("UserAgent() = %q", f.UserAgent())
	}
}

// TestHeaderInjectingTransport tests cookie merging and request isolation.
func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	transport := &headerInjectingTransport{base: http.DefaultTransport, cookie: "b=2"}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Cookie", "a=1")

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotCookie != "a=1; b=2" {
		t.Errorf("got cookie %q, expected %q", gotCookie, "a=1; b=2")
	}
	if req.Header.Get("Cookie") != "a=1" {
		t.Error("original request was modified")
	}
}

// TestIsTextual tests media type classification.
func TestIsTextual(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		mediaType string
		expected  bool
	}{
		{"text/html", true},
		{"text/plain", true},
		{"application/xhtml+xml", true},
		{"application/rss+xml", true},
		{"application/xml", true},
		{"image/png", false},
		{"application/pdf", false},
		{"application/octet-stream", false},
	}

	for _, tc := range testCases {
		t.Run(tc.mediaType, func(t *testing.T) {
			t.Parallel()
			if got := isTextual(tc.mediaType); got != tc.expected {
				t.Errorf("isTextual(%q) = %v, expected %v", tc.mediaType, got, tc.expected)
			}
		})
	}
}

// TestFetcherKeepsCredentialsOnSite tests that the site cookie and headers
// never reach another host.
func TestFetcherKeepsCredentialsOnSite(t *testing.T) {
	t.Parallel()

	type seen struct {
		cookie, auth string
	}
	record := func(got chan<- seen) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			got <- seen{cookie: r.Header.Get("Cookie"), auth: r.Header.Get("Authorization")}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		}
	}
	credentials := []Option{
		WithCookie("session=secret"),
		WithHeaders(map[string]string{"Authorization": "Bearer tok"}),
	}

	t.Run("redirect to another host", func(t *testing.T) {
		t.Parallel()

		offsiteGot := make(chan seen, 1)
		offsite := httptest.NewServer(record(offsiteGot))
		t.Cleanup(offsite.Close)

		site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, offsite.URL+"/landing", http.StatusFound)
		}))
		t.Cleanup(site.Close)

		if _, err := New(credentials...).Fetch(context.Background(), site.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := <-offsiteGot
		if s.cookie != "" || s.auth != "" {
			t.Errorf("expected no credentials off-site, got cookie %q auth %q", s.cookie, s.auth)
		}
	})

	t.Run("redirect on the same host", func(t *testing.T) {
		t.Parallel()

		got := make(chan seen, 1)
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", record(got))
		site := httptest.NewServer(mux)
		t.Cleanup(site.Close)

		if _, err := New(credentials...).Fetch(context.Background(), site.URL+"/old"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := <-got
		if s.cookie != "session=secret" || s.auth != "Bearer tok" {
			t.Errorf("expected credentials after same-host redirect, got cookie %q auth %q", s.cookie, s.auth)
		}
	})

	t.Run("request for another host", func(t *testing.T) {
		t.Parallel()

		got := make(chan seen, 1)
		other := httptest.NewServer(record(got))
		t.Cleanup(other.Close)

		f := New(append(credentials, WithSiteHost("example.com"))...)
		if _, err := f.Fetch(context.Background(), other.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := <-got
		if s.cookie != "" || s.auth != "" {
			t.Errorf("expected no credentials for other host, got cookie %q auth %q", s.cookie, s.auth)
		}
	})

	t.Run("request for the site host", func(t *testing.T) {
		t.Parallel()

		got := make(chan seen, 1)
		site := httptest.NewServer(record(got))
		t.Cleanup(site.Close)

		f := New(append(credentials, WithSiteHost(strings.TrimPrefix(site.URL, "http://")))...)
		if _, err := f.Fetch(context.Background(), site.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s := <-got; s.cookie != "session=secret" {
			t.Errorf("expected site cookie, got %q", s.cookie)
		}
	})
}

// TestCanonicalHost tests host comparison keys.
func TestCanonicalHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rawURL string
		want   string
	}{
		{"http://Example.com/", "example.com"},
		{"http://example.com:80/", "example.com"},
		{"https://example.com:443/", "example.com"},
		{"http://example.com:443/", "example.com:443"},
		{"http://example.com:8080/", "example.com:8080"},
		{"http://[::1]:80/", "[::1]"},
	}
	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			t.Parallel()
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatal(err)
			}
			if got := canonicalHost(u); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := canonicalSiteHost(" Example.com:80 "); got != "example.com" {
		t.Errorf("expected example.com, got %q", got)
	}
	if got := canonicalSiteHost("example.com:8080"); got != "example.com:8080" {
		t.Errorf("expected example.com:8080, got %q", got)
	}
}
