package model

// Severity represents how much an SEO finding is expected to hurt a page.
// Values are ordered so that comparisons and sorting work directly.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct ranking impact.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues, such as a title slightly outside
	// the recommended length or a missing sitemap.xml.
	SeverityLow

	// SeverityMedium indicates issues that search engines visibly penalize or
	// work around, such as a missing meta description or images without alt text.
	SeverityMedium

	// SeverityHigh indicates issues that usually damage how a page is listed,
	// such as a missing <title>.
	SeverityHigh

	// SeverityCritical is reserved for issues that keep a page out of the index.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Finding types produced by Summarize.
const (
	FindingMissingTitle       = "missing_title"
	FindingTitleLength        = "title_length"
	FindingMissingDescription = "missing_meta_description"
	FindingEmptyDescription   = "empty_meta_description"
	FindingDescriptionLength  = "meta_description_length"
	FindingMissingCanonical   = "missing_canonical"
	FindingMissingAltText     = "missing_alt_text"
	FindingMissingRobots      = "missing_robots_txt"
	FindingMissingSitemap     = "missing_sitemap_xml"
)

// Recommended length ranges, in characters, bounds included.
const (
	TitleMinLength       = 15
	TitleMaxLength       = 60
	DescriptionMinLength = 70
	DescriptionMaxLength = 155
)

const (
	defaultUnknownFindingImpact  = "Unknown finding type. Review manually."
	defaultUnknownRecommendation = "Investigate the finding and assess its impact."
)

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
// It is the single place where severities are assigned.
var findingInfoMapping = map[string]FindingInfo{
	FindingMissingTitle: {
		Severity:       SeverityHigh,
		Impact:         "Search engines fall back to generated titles, and the page is hard to identify in results and browser tabs.",
		Recommendation: "Add a unique <title> element that describes the page and includes its primary keyword.",
	},
	FindingTitleLength: {
		Severity:       SeverityLow,
		Impact:         "Very short titles carry little information; long titles are truncated in search results.",
		Recommendation: "Keep the title between 15 and 60 characters and include the primary keyword.",
	},
	FindingMissingDescription: {
		Severity:       SeverityMedium,
		Impact:         "Search engines build a snippet from page text, which is often less relevant than a written summary.",
		Recommendation: "Add a <meta name=\"description\"> summarizing the page.",
	},
	FindingEmptyDescription: {
		Severity:       SeverityMedium,
		Impact:         "An empty description tag is treated like a missing one.",
		Recommendation: "Fill the description tag with a 50 to 160 character summary.",
	},
	FindingDescriptionLength: {
		Severity:       SeverityLow,
		Impact:         "Descriptions outside the usual snippet length are cut off or padded with page text.",
		Recommendation: "Keep the meta description between 70 and 155 characters.",
	},
	FindingMissingCanonical: {
		Severity:       SeverityLow,
		Impact:         "Without a canonical link, duplicate URLs for the same content may compete with each other.",
		Recommendation: "Add <link rel=\"canonical\"> pointing at the preferred URL.",
	},
	FindingMissingAltText: {
		Severity:       SeverityMedium,
		Impact:         "Images without alt text are invisible to screen readers and image search.",
		Recommendation: "Add descriptive alt attributes to images that are missing them.",
	},
	FindingMissingRobots: {
		Severity:       SeverityLow,
		Impact:         "Crawlers get no guidance about which paths to skip or where the sitemap is.",
		Recommendation: "Serve a robots.txt at the site root, even if it allows everything.",
	},
	FindingMissingSitemap: {
		Severity:       SeverityLow,
		Impact:         "Crawlers must discover pages through links only.",
		Recommendation: "Publish a sitemap.xml at the site root listing the public pages.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         defaultUnknownFindingImpact,
		Recommendation: defaultUnknownRecommendation,
	}
}
