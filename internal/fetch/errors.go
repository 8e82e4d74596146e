package fetch

import "errors"

// Fetch errors. Callers match them with errors.Is; the crawler only needs
// to know that a fetch failed, metrics use the distinction as a label.
var (
	// ErrUnexpectedStatus is returned when the server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNotText is returned when the response body is not textual
	// (images, archives, PDFs, ...).
	ErrNotText = errors.New("response is not text")

	// ErrReadBody is returned when the response body cannot be read.
	ErrReadBody = errors.New("failed to read response body")

	// ErrRequest is returned when the request cannot be sent or no response arrives.
	ErrRequest = errors.New("request failed")
)

// Reason returns a short label for err suitable for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, ErrNotText):
		return "not_text"
	case errors.Is(err, ErrReadBody):
		return "read"
	default:
		return "transport"
	}
}
