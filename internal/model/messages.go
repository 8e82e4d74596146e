package model

import "fmt"

// Display lines for PageReport.Messages.
const (
	msgTitleFound         = "Title found: %s"
	msgTitleMissing       = "Missing <title> tag"
	msgDescriptionFound   = "Meta description found"
	msgDescriptionEmpty   = "Empty meta description"
	msgDescriptionMissing = "Missing meta description"
	msgCanonicalFound     = "Canonical tag: %s"
	msgCanonicalMissing   = "Missing canonical tag"
	msgMissingAlt         = "Images missing alt text: %d"
)

// DeriveMessages renders the display lines for a page in a fixed order:
// title status, description status, canonical status, alt-text count.
// The result depends only on the page's signal fields.
func DeriveMessages(p *PageReport) []string {
	messages := make([]string, 0, 4)

	if p.Title != nil {
		messages = append(messages, fmt.Sprintf(msgTitleFound, *p.Title))
	} else {
		messages = append(messages, msgTitleMissing)
	}

	switch {
	case p.MetaDescription == nil:
		messages = append(messages, msgDescriptionMissing)
	case *p.MetaDescription == "":
		messages = append(messages, msgDescriptionEmpty)
	default:
		messages = append(messages, msgDescriptionFound)
	}

	if p.Canonical != nil {
		messages = append(messages, fmt.Sprintf(msgCanonicalFound, *p.Canonical))
	} else {
		messages = append(messages, msgCanonicalMissing)
	}

	messages = append(messages, fmt.Sprintf(msgMissingAlt, p.MissingAltCount))

	return messages
}

// MessageOK reports whether the i-th derived message describes a passing check.
// Writers use it to pick a marker; it is computed from the same fields as the
// message itself.
func (p *PageReport) MessageOK(i int) bool {
	switch i {
	case 0:
		return p.Title != nil
	case 1:
		return p.MetaDescription != nil && *p.MetaDescription != ""
	case 2:
		return p.Canonical != nil
	case 3:
		return p.MissingAltCount == 0
	default:
		return true
	}
}
