package crawler

import "errors"

var (
	// ErrInvalidSeed is returned by Crawl when the seed URL does not parse,
	// is not http or https, or has no host.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrInvalidHostMatch is returned by ParseHostMatch for unknown modes.
	ErrInvalidHostMatch = errors.New("invalid host match mode")
)
