package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no seed URL is given on the command line.
	ErrNoTarget = errors.New("no target specified: provide at least one seed URL")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Zero is allowed and yields an empty report.
	ErrInvalidMaxPages = errors.New("invalid page limit: must not be negative")

	// ErrInvalidBatchSize is returned when the number of concurrent crawls is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidWorkers is returned when the per-crawl worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --markdown and --text is given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --markdown or --text")

	// ErrInvalidMaxBodySize is returned when the body size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidHostMatch is returned for an unknown --host-match value.
	ErrInvalidHostMatch = errors.New("invalid host match: want contains, exact or domain")
)
