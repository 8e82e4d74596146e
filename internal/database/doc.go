// Package database provides SQLite-based crawl history for SEOScan.
//
// CrawlDB stores:
//   - Crawl runs: host, seed, timestamp, the full report as JSON and the
//     severity counts of its findings
//   - Pages: the signals of every page of a run, one row each
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, with WAL mode enabled by default. The history command
// reads it back to list, show and compare earlier crawls of a host.
package database
