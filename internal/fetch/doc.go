// Package fetch retrieves web pages as decoded text.
//
// A Fetcher wraps an *http.Client whose transport adds the per-site cookie
// and headers from the configuration file to every request, including the
// robots.txt and sitemap.xml probes that share the client. Fetch treats
// transport errors, non-2xx statuses and non-text bodies as failures; the
// crawler abandons the branch on any of them.
package fetch
