package model

// PageReport holds the SEO signals extracted from one successfully fetched page.
// A PageReport is built once by NewPageReport and is not modified afterwards;
// the crawl report that receives it owns it from then on.
//
// Optional signals are pointers so that "element missing" (nil) stays distinct
// from "element present with an empty value" (pointer to ""). The JSON encoding
// keeps that distinction: nil encodes as null.
type PageReport struct {
	// URL is the normalized absolute URL that was fetched.
	URL string `json:"url"`

	// Title is the text of the first <title> element.
	Title *string `json:"title"`

	// MetaDescription is the content attribute of the first element
	// whose name attribute is "description".
	MetaDescription *string `json:"meta_description"`

	// Canonical is the href of the first element whose rel attribute is
	// "canonical", resolved against URL when possible.
	Canonical *string `json:"canonical"`

	// MissingAltCount is the number of <img> elements without an alt attribute.
	MissingAltCount int `json:"missing_alt_count"`

	// HasRobots reports whether robots.txt answered 2xx on the page's host.
	HasRobots bool `json:"has_robots"`

	// HasSitemap reports whether sitemap.xml answered 2xx on the page's host.
	HasSitemap bool `json:"has_sitemap"`

	// Messages are display lines derived from the fields above.
	Messages []string `json:"messages"`

	// Depth is the number of links followed from the seed to reach this page.
	Depth int `json:"depth"`

	// Order is the discovery sequence number within the crawl (0 for the seed).
	Order int `json:"order"`
}

// Signals is the set of values the page analyzer extracts from HTML.
// It is the input for NewPageReport.
type Signals struct {
	Title           *string
	MetaDescription *string
	Canonical       *string
	MissingAltCount int
}

// Presence carries the results of the robots.txt and sitemap.xml probes.
type Presence struct {
	Robots  bool
	Sitemap bool
}

// NewPageReport assembles a PageReport and derives its display messages.
// Negative alt counts are clamped to zero.
func NewPageReport(pageURL string, signals Signals, presence Presence, depth, order int) *PageReport {
	missing := signals.MissingAltCount
	if missing < 0 {
		missing = 0
	}

	r := &PageReport{
		URL:             pageURL,
		Title:           copyString(signals.Title),
		MetaDescription: copyString(signals.MetaDescription),
		Canonical:       copyString(signals.Canonical),
		MissingAltCount: missing,
		HasRobots:       presence.Robots,
		HasSitemap:      presence.Sitemap,
		Depth:           depth,
		Order:           order,
	}
	r.Messages = DeriveMessages(r)
	return r
}

// HasTitle reports whether a <title> element was found.
func (p *PageReport) HasTitle() bool {
	return p.Title != nil
}

// TitleText returns the title or an empty string when absent.
func (p *PageReport) TitleText() string {
	return deref(p.Title)
}

// DescriptionText returns the meta description or an empty string when absent.
func (p *PageReport) DescriptionText() string {
	return deref(p.MetaDescription)
}

// CanonicalText returns the canonical URL or an empty string when absent.
func (p *PageReport) CanonicalText() string {
	return deref(p.Canonical)
}

// StringPtr returns a pointer to s. It is a convenience for building Signals.
func StringPtr(s string) *string {
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
