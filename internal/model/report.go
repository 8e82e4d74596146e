package model

import (
	"net/url"
	"strings"
	"time"
)

// CrawlReport is the result of one crawl started from a single seed URL.
// It carries the page records in discovery order plus the derived summary.
type CrawlReport struct {
	// Seed is the URL the crawl started from, as given by the user.
	Seed string `json:"seed"`

	// Host is the lowercased host (with port, if any) of the seed.
	// Crawl history is grouped by this value.
	Host string `json:"host"`

	// Limit is the page budget the crawl ran with.
	Limit int `json:"limit"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl finished. Zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// Pages holds one record per successfully fetched page.
	Pages []*PageReport `json:"pages"`

	// Summary contains the findings derived from Pages.
	Summary *Summary `json:"summary,omitempty"`

	// TimedOut is true if the crawl was cut short by its deadline.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that stopped the crawl early.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewCrawlReport creates an empty report for seed.
func NewCrawlReport(seed string, limit int) *CrawlReport {
	return &CrawlReport{
		Seed:      seed,
		Host:      HostOf(seed),
		Limit:     limit,
		StartedAt: time.Now(),
		Pages:     make([]*PageReport, 0),
	}
}

// AddPage appends a page record. Nil records are ignored.
func (r *CrawlReport) AddPage(p *PageReport) {
	if p == nil {
		return
	}
	r.Pages = append(r.Pages, p)
}

// SetError records err on the report and keeps ErrorMessage in sync.
func (r *CrawlReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	} else {
		r.ErrorMessage = ""
	}
}

// Finish stamps FinishedAt.
func (r *CrawlReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the crawl took, or zero if it has not finished.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PageCount returns the number of page records.
func (r *CrawlReport) PageCount() int {
	return len(r.Pages)
}

// FindPage returns the record for pageURL, or nil.
func (r *CrawlReport) FindPage(pageURL string) *PageReport {
	for _, p := range r.Pages {
		if p.URL == pageURL {
			return p
		}
	}
	return nil
}

// HostOf returns the lowercased host (including any port) of rawURL,
// or an empty string when rawURL cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
