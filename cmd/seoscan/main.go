// Package main provides the entry point for the SEOScan CLI.
//
// SEOScan crawls a website from a seed URL, follows same-host links up to a
// page limit and reports on-page SEO signals of every page it visits.
//
// Usage:
//
//	seoscan crawl <url> [-o seo_report.pdf] [-l 5]
//	seoscan history <host>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
