// Package probe checks whether a host serves robots.txt and sitemap.xml.
//
// A probe is a single GET of scheme://host/path. Only a 2xx answer counts
// as present; errors, timeouts and other statuses count as absent and are
// never returned to the caller. Results are cached per scheme://host/path
// for the lifetime of a Prober, which is one crawl.
package probe
