// Package model defines the data structures shared by the crawler, the report
// writers and the crawl history store.
//
// This package contains the following main types:
//   - PageReport: the SEO signals of one fetched page
//   - CrawlReport: the result of one crawl, pages plus summary
//   - Summary: findings derived from the pages, counted by severity
//   - ReportDiff: what changed between two crawls of the same host
//
// Models live in their own package so that crawler, report and database can
// all use them without import cycles. They are serializable to JSON for
// report output and database storage.
package model
