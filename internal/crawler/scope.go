package crawler

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HostMatch selects how a link's host is compared with the host of the
// page it was found on.
type HostMatch string

const (
	// HostMatchContains follows a link when the current page's host is a
	// substring of the link's host. "example.com" therefore also admits
	// "blog.example.com" and "example.com.evil.net".
	HostMatchContains HostMatch = "contains"

	// HostMatchExact follows a link only when both hosts are equal.
	HostMatchExact HostMatch = "exact"

	// HostMatchDomain follows a link when both hosts share the same
	// registrable domain (eTLD+1) according to the public suffix list.
	HostMatchDomain HostMatch = "domain"
)

// ParseHostMatch converts a flag value into a HostMatch.
func ParseHostMatch(s string) (HostMatch, error) {
	switch HostMatch(strings.ToLower(strings.TrimSpace(s))) {
	case "", HostMatchContains:
		return HostMatchContains, nil
	case HostMatchExact:
		return HostMatchExact, nil
	case HostMatchDomain:
		return HostMatchDomain, nil
	default:
		return "", fmt.Errorf("%w: %q (want contains, exact or domain)", ErrInvalidHostMatch, s)
	}
}

// sameHost reports whether linkHost passes the matcher against pageHost.
// Both hosts are compared lowercased and including any port.
func (m HostMatch) sameHost(pageHost, linkHost string) bool {
	pageHost = strings.ToLower(pageHost)
	linkHost = strings.ToLower(linkHost)
	if pageHost == "" || linkHost == "" {
		return false
	}

	switch m {
	case HostMatchExact:
		return pageHost == linkHost
	case HostMatchDomain:
		return registrableDomain(pageHost) == registrableDomain(linkHost)
	default:
		return strings.Contains(linkHost, pageHost)
	}
}

// registrableDomain returns the eTLD+1 of host with any port removed.
// Hosts without one (IP addresses, "localhost") are returned as they are.
func registrableDomain(host string) string {
	hostname := host
	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != "" {
		hostname = u.Hostname()
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return domain
}

// normalizeURL returns the form of rawURL used for deduplication: scheme
// and host lowercased, default port and fragment removed, empty path
// replaced by "/".
// The second result is false for URLs that cannot be crawled.
func normalizeURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	if u.Host == "" {
		return "", false
	}
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), true
}

// pathFilter decides whether a URL path may be crawled from the site's
// ignore and follow patterns.
type pathFilter struct {
	ignore []string
	follow []string
}

// allows applies the patterns to the path of rawURL:
//  1. a path matching any ignore pattern is skipped
//  2. if follow patterns are set, the path must match one of them
//  3. everything else is crawled
func (f pathFilter) allows(rawURL string) bool {
	if len(f.ignore) == 0 && len(f.follow) == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.follow) > 0 {
		for _, pattern := range f.follow {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}
	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a directory
//   - *.ext to match a file extension at any depth
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin/users/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}
