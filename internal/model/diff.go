package model

import (
	"sort"
	"strconv"
	"time"
)

// Direction values for RunDelta.Direction.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// ReportDiff describes what changed between two crawls of the same host.
type ReportDiff struct {
	// Host is the crawled host.
	Host string `json:"host"`

	// Previous holds the counts of the older run.
	Previous RunStats `json:"previous"`

	// Current holds the counts of the newer run.
	Current RunStats `json:"current"`

	// AddedPages are URLs present only in the newer run.
	AddedPages []string `json:"added_pages,omitempty"`

	// RemovedPages are URLs present only in the older run.
	RemovedPages []string `json:"removed_pages,omitempty"`

	// ChangedPages lists per-field signal changes on pages present in both runs.
	ChangedPages []PageChange `json:"changed_pages,omitempty"`

	// NewFindings contains findings that appeared in the newer run.
	NewFindings []Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings that are gone in the newer run.
	ResolvedFindings []Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Delta is the change in per-severity counts.
	Delta RunDelta `json:"delta"`
}

// RunStats contains the counts of one run shown in a comparison.
type RunStats struct {
	DateCrawled   time.Time `json:"date_crawled"`
	PagesCrawled  int       `json:"pages_crawled"`
	TotalFindings int       `json:"total_findings"`
	CriticalCount int       `json:"critical_count"`
	HighCount     int       `json:"high_count"`
	MediumCount   int       `json:"medium_count"`
	LowCount      int       `json:"low_count"`
	InfoCount     int       `json:"info_count"`
}

// RunDelta describes the change in findings between runs.
type RunDelta struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction     string `json:"direction"`
	CriticalDelta int    `json:"critical_delta"`
	HighDelta     int    `json:"high_delta"`
	MediumDelta   int    `json:"medium_delta"`
	LowDelta      int    `json:"low_delta"`
	InfoDelta     int    `json:"info_delta"`
}

// PageChange is a single signal that differs between two runs.
type PageChange struct {
	URL   string `json:"url"`
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// HasChanges reports whether anything differs between the two runs.
func (d *ReportDiff) HasChanges() bool {
	return len(d.AddedPages) > 0 || len(d.RemovedPages) > 0 || len(d.ChangedPages) > 0 ||
		len(d.NewFindings) > 0 || len(d.ResolvedFindings) > 0
}

// CompareReports compares an older crawl with a newer one.
// Reports without a Summary are summarized on the fly.
func CompareReports(previous, current *CrawlReport) *ReportDiff {
	prevSummary := summaryOf(previous)
	currSummary := summaryOf(current)

	diff := &ReportDiff{
		Host:     current.Host,
		Previous: statsOf(previous, prevSummary),
		Current:  statsOf(current, currSummary),
	}

	prevPages := make(map[string]*PageReport, len(previous.Pages))
	for _, p := range previous.Pages {
		prevPages[p.URL] = p
	}
	currPages := make(map[string]*PageReport, len(current.Pages))
	for _, p := range current.Pages {
		currPages[p.URL] = p
	}

	for _, p := range current.Pages {
		old, ok := prevPages[p.URL]
		if !ok {
			diff.AddedPages = append(diff.AddedPages, p.URL)
			continue
		}
		diff.ChangedPages = append(diff.ChangedPages, comparePages(old, p)...)
	}
	for _, p := range previous.Pages {
		if _, ok := currPages[p.URL]; !ok {
			diff.RemovedPages = append(diff.RemovedPages, p.URL)
		}
	}

	prevFindings := make(map[string]Finding)
	for _, f := range prevSummary.Findings {
		prevFindings[findingKey(f)] = f
	}
	currFindings := make(map[string]Finding)
	for _, f := range currSummary.Findings {
		currFindings[findingKey(f)] = f
	}

	for _, f := range currSummary.Findings {
		if _, ok := prevFindings[findingKey(f)]; !ok {
			diff.NewFindings = append(diff.NewFindings, f)
		}
	}
	for _, f := range prevSummary.Findings {
		if _, ok := currFindings[findingKey(f)]; !ok {
			diff.ResolvedFindings = append(diff.ResolvedFindings, f)
		} else {
			diff.UnchangedCount++
		}
	}

	sortFindings(diff.NewFindings)
	sortFindings(diff.ResolvedFindings)

	diff.Delta = calculateDelta(diff.Previous, diff.Current)
	return diff
}

func summaryOf(r *CrawlReport) *Summary {
	if r.Summary != nil {
		return r.Summary
	}
	return NewSummary(r)
}

func statsOf(r *CrawlReport, s *Summary) RunStats {
	return RunStats{
		DateCrawled:   r.StartedAt,
		PagesCrawled:  len(r.Pages),
		TotalFindings: len(s.Findings),
		CriticalCount: s.CriticalCount,
		HighCount:     s.HighCount,
		MediumCount:   s.MediumCount,
		LowCount:      s.LowCount,
		InfoCount:     s.InfoCount,
	}
}

func comparePages(old, cur *PageReport) []PageChange {
	var changes []PageChange
	add := func(field, o, n string) {
		if o != n {
			changes = append(changes, PageChange{URL: cur.URL, Field: field, Old: o, New: n})
		}
	}
	add("title", optionalText(old.Title), optionalText(cur.Title))
	add("meta_description", optionalText(old.MetaDescription), optionalText(cur.MetaDescription))
	add("canonical", optionalText(old.Canonical), optionalText(cur.Canonical))
	add("missing_alt_count", strconv.Itoa(old.MissingAltCount), strconv.Itoa(cur.MissingAltCount))
	add("has_robots", strconv.FormatBool(old.HasRobots), strconv.FormatBool(cur.HasRobots))
	add("has_sitemap", strconv.FormatBool(old.HasSitemap), strconv.FormatBool(cur.HasSitemap))
	return changes
}

// optionalText renders an optional value so that absence and emptiness
// compare as different.
func optionalText(s *string) string {
	if s == nil {
		return "(none)"
	}
	return strconv.Quote(*s)
}

// findingKey identifies a finding across runs. The value is left out so that
// a title which is still too long but was reworded does not count as new.
func findingKey(f Finding) string {
	return f.Type + "|" + f.Location
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		return findings[i].Location < findings[j].Location
	})
}

// calculateDelta weighs the per-severity counts and decides the direction.
func calculateDelta(previous, current RunStats) RunDelta {
	delta := RunDelta{
		CriticalDelta: current.CriticalCount - previous.CriticalCount,
		HighDelta:     current.HighCount - previous.HighCount,
		MediumDelta:   current.MediumCount - previous.MediumCount,
		LowDelta:      current.LowCount - previous.LowCount,
		InfoDelta:     current.InfoCount - previous.InfoCount,
	}

	previousScore := previous.CriticalCount*100 + previous.HighCount*50 + previous.MediumCount*10 + previous.LowCount*5 + previous.InfoCount
	currentScore := current.CriticalCount*100 + current.HighCount*50 + current.MediumCount*10 + current.LowCount*5 + current.InfoCount

	switch {
	case currentScore < previousScore:
		delta.Direction = DirectionImproved
	case currentScore > previousScore:
		delta.Direction = DirectionWorsened
	default:
		delta.Direction = DirectionUnchanged
	}
	return delta
}
