package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/seoscan/internal/model"
	"golang.org/x/net/html"
)

// Analysis is what the analyzer extracts from one HTML document.
type Analysis struct {
	// Signals are the SEO fields of the page.
	Signals model.Signals

	// Links are the href values of all <a> elements, resolved against the
	// page URL, in document order. Links with non-HTTP schemes and hrefs
	// that cannot be resolved are left out.
	Links []string
}

// Analyze parses htmlText and extracts the SEO signals and candidate links.
// It performs no I/O. Missing elements are reported as nil fields, never as
// errors; an error is returned only when pageURL itself is not a valid URL.
func Analyze(htmlText, pageURL string) (*Analysis, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	// html.Parse recovers from malformed markup; it only fails on reader errors.
	root, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	a := &Analysis{
		Signals: model.Signals{
			Title:           extractTitle(doc),
			MetaDescription: extractDescription(doc),
			Canonical:       extractCanonical(doc, base),
			MissingAltCount: countMissingAlt(doc),
		},
		Links: extractLinks(doc, base),
	}
	return a, nil
}

// extractTitle returns the trimmed text of the first <title> element.
func extractTitle(doc *goquery.Document) *string {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return nil
	}
	return model.StringPtr(strings.TrimSpace(sel.Text()))
}

// extractDescription returns the content attribute of the first element
// named "description". An element without a content attribute counts as
// missing; an empty content attribute is kept as "".
func extractDescription(doc *goquery.Document) *string {
	sel := doc.Find(`[name="description"]`).First()
	if sel.Length() == 0 {
		return nil
	}
	content, ok := sel.Attr("content")
	if !ok {
		return nil
	}
	return model.StringPtr(content)
}

// extractCanonical returns the href of the first rel="canonical" element,
// resolved against base. An href that does not parse is returned as written.
func extractCanonical(doc *goquery.Document, base *url.URL) *string {
	sel := doc.Find(`[rel="canonical"]`).First()
	if sel.Length() == 0 {
		return nil
	}
	href, ok := sel.Attr("href")
	if !ok {
		return nil
	}
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return model.StringPtr(href)
	}
	return model.StringPtr(base.ResolveReference(ref).String())
}

// countMissingAlt counts <img> elements with no alt attribute at all.
// alt="" is a valid decorative-image marker and is not counted.
func countMissingAlt(doc *goquery.Document) int {
	missing := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); !ok {
			missing++
		}
	})
	return missing
}

// extractLinks resolves every <a href> against base in document order.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link := resolveLink(base, href); link != "" {
			links = append(links, link)
		}
	})
	return links
}

// resolveLink resolves href against base. It returns an empty string for
// script, mail, phone and data links, bare fragments, hrefs that do not
// parse, and anything that does not resolve to http or https.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	return resolved.String()
}
