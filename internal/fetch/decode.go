package fetch

import (
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody converts body to UTF-8 text.
// The encoding is taken from the Content-Type header, a BOM or a <meta>
// declaration, in that order, falling back to UTF-8. Bodies in an
// unknown or broken encoding are returned unchanged.
func decodeBody(body []byte, contentType string) string {
	_, name, _ := charset.DetermineEncoding(body, contentType)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// isTextual reports whether a media type can be analyzed as markup or text.
func isTextual(mediaType string) bool {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/xhtml+xml", mediaType == "application/xml":
		return true
	case strings.HasSuffix(mediaType, "+xml"):
		return true
	default:
		return false
	}
}
