// Package pipeline runs a crawl as a sequence of steps.
//
// A seed goes through the crawl step (traversal and extraction), the
// summary step (findings by severity) and optionally the save step (crawl
// history). Each step receives the current CrawlReport and can modify it.
// The pipeline gives every step the same error handling, logging and
// cancellation checks.
//
// BatchProcessor crawls several seeds with bounded concurrency using
// errgroup.
package pipeline
