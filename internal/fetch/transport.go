package fetch

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// headerInjectingTransport wraps an http.RoundTripper to inject
// a site cookie and custom headers into requests for the site.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
	// host restricts decoration to one host in canonicalHost form.
	// Empty means any host the redirect chain started on.
	host string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.decorates(req) {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// decorates reports whether req may carry the site credentials: its host
// must be the site host, and a redirect hop must not have left the host
// the chain started on.
func (t *headerInjectingTransport) decorates(req *http.Request) bool {
	host := canonicalHost(req.URL)
	if t.host != "" && host != t.host {
		return false
	}
	for prev := req.Response; prev != nil && prev.Request != nil; prev = prev.Request.Response {
		if canonicalHost(prev.Request.URL) != host {
			return false
		}
	}
	return true
}

// canonicalHost returns u's lowercase host with the scheme's default
// port removed.
func canonicalHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

// canonicalSiteHost normalises a configured "host[:port]" the way
// canonicalHost does. Without a scheme both default ports are dropped.
func canonicalSiteHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, port := range []string{":80", ":443"} {
		host = strings.TrimSuffix(host, port)
	}
	return host
}
