package model

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"
)

// Summary is a condensed, human-readable view of a crawl.
// It lists the SEO findings of every page and counts them by severity.
type Summary struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// DateCrawled is when the crawl was performed.
	DateCrawled time.Time `json:"date_crawled"`

	// === Severity Summary ===

	// CriticalCount is the number of critical findings.
	CriticalCount int `json:"critical_count"`

	// HighCount is the number of high severity findings.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity findings.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity findings.
	LowCount int `json:"low_count"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"info_count"`

	// === Findings ===

	// Findings contains all findings in page order.
	Findings []Finding `json:"findings,omitempty"`

	// === Page Statistics ===

	// PagesCrawled is the number of pages with a record.
	PagesCrawled int `json:"pages_crawled"`

	// PagesWithIssues is the number of pages with at least one page-level finding.
	PagesWithIssues int `json:"pages_with_issues"`

	// TimedOut indicates if the crawl was terminated due to timeout.
	TimedOut bool `json:"timed_out"`

	// Error contains any error message if the crawl failed.
	Error string `json:"error,omitempty"`
}

// Finding represents a single SEO issue.
type Finding struct {
	// Type is the finding type identifier, one of the Finding* constants.
	Type string `json:"type"`

	// Severity is the impact level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Impact explains how the issue affects search visibility.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the offending value (title text, count, ...).
	Value string `json:"value,omitempty"`

	// Location is the page URL, or the host root for host-level findings.
	Location string `json:"location,omitempty"`
}

// NewSummary creates a Summary from a crawl report.
// Host-level findings (robots.txt, sitemap.xml) are reported once per host,
// at the first page of that host.
func NewSummary(report *CrawlReport) *Summary {
	s := &Summary{
		Seed:         report.Seed,
		DateCrawled:  report.StartedAt,
		TimedOut:     report.TimedOut,
		PagesCrawled: len(report.Pages),
		Findings:     make([]Finding, 0),
	}
	if report.Error != nil {
		s.Error = report.Error.Error()
	} else {
		s.Error = report.ErrorMessage
	}

	seenHosts := make(map[string]struct{})
	for _, p := range report.Pages {
		before := len(s.Findings)
		s.collectPageFindings(p)
		if len(s.Findings) > before {
			s.PagesWithIssues++
		}

		host := HostOf(p.URL)
		if _, ok := seenHosts[host]; ok {
			continue
		}
		seenHosts[host] = struct{}{}
		s.collectHostFindings(p)
	}

	s.countBySeverity()
	return s
}

// collectPageFindings derives the findings that concern a single page.
func (s *Summary) collectPageFindings(p *PageReport) {
	switch {
	case p.Title == nil:
		s.addFinding(FindingMissingTitle, "Missing Title",
			"The page has no <title> element", "", p.URL)
	default:
		if n := utf8.RuneCountInString(*p.Title); n < TitleMinLength || n > TitleMaxLength {
			s.addFinding(FindingTitleLength, "Title Length",
				fmt.Sprintf("Title is %d characters long (recommended %d-%d)", n, TitleMinLength, TitleMaxLength),
				*p.Title, p.URL)
		}
	}

	switch {
	case p.MetaDescription == nil:
		s.addFinding(FindingMissingDescription, "Missing Meta Description",
			"The page has no meta description", "", p.URL)
	case *p.MetaDescription == "":
		s.addFinding(FindingEmptyDescription, "Empty Meta Description",
			"The meta description tag has no content", "", p.URL)
	default:
		if n := utf8.RuneCountInString(*p.MetaDescription); n < DescriptionMinLength || n > DescriptionMaxLength {
			s.addFinding(FindingDescriptionLength, "Meta Description Length",
				fmt.Sprintf("Meta description is %d characters long (recommended %d-%d)", n, DescriptionMinLength, DescriptionMaxLength),
				*p.MetaDescription, p.URL)
		}
	}

	if p.Canonical == nil {
		s.addFinding(FindingMissingCanonical, "Missing Canonical Tag",
			"The page has no canonical link", "", p.URL)
	}

	if p.MissingAltCount > 0 {
		s.addFinding(FindingMissingAltText, "Images Missing Alt Text",
			fmt.Sprintf("%d image(s) have no alt attribute", p.MissingAltCount),
			strconv.Itoa(p.MissingAltCount), p.URL)
	}
}

// collectHostFindings derives the robots.txt and sitemap.xml findings for
// the host of p.
func (s *Summary) collectHostFindings(p *PageReport) {
	root := hostRoot(p.URL)
	if !p.HasRobots {
		s.addFinding(FindingMissingRobots, "Missing robots.txt",
			"robots.txt did not answer with a 2xx status", "", root+"robots.txt")
	}
	if !p.HasSitemap {
		s.addFinding(FindingMissingSitemap, "Missing sitemap.xml",
			"sitemap.xml did not answer with a 2xx status", "", root+"sitemap.xml")
	}
}

// addFinding adds a finding to the summary.
func (s *Summary) addFinding(findingType, title, description, value, location string) {
	info := GetFindingInfo(findingType)
	s.Findings = append(s.Findings, Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	})
}

// countBySeverity counts findings by severity level.
func (s *Summary) countBySeverity() {
	s.CriticalCount, s.HighCount, s.MediumCount, s.LowCount, s.InfoCount = 0, 0, 0, 0, 0
	for _, f := range s.Findings {
		switch f.Severity {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityHigh:
			s.HighCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		case SeverityInfo:
			s.InfoCount++
		}
	}
}

// TotalFindings returns the total number of findings.
func (s *Summary) TotalFindings() int {
	return len(s.Findings)
}

// HasFindings returns true if there are any findings.
func (s *Summary) HasFindings() bool {
	return len(s.Findings) > 0
}

// GetFindingsBySeverity returns findings filtered by severity.
func (s *Summary) GetFindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range s.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}

// GetFindingsByLocation returns the findings reported at location.
func (s *Summary) GetFindingsByLocation(location string) []Finding {
	var result []Finding
	for _, f := range s.Findings {
		if f.Location == location {
			result = append(result, f)
		}
	}
	return result
}

// SeverityCounts returns the per-severity counts keyed by lowercase name.
// The database stores this map alongside each crawl run.
func (s *Summary) SeverityCounts() map[string]int {
	return map[string]int{
		"critical": s.CriticalCount,
		"high":     s.HighCount,
		"medium":   s.MediumCount,
		"low":      s.LowCount,
		"info":     s.InfoCount,
	}
}

// hostRoot returns "scheme://host/" for rawURL.
func hostRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host + "/"
}
