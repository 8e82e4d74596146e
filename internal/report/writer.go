package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/seoscan/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
// Implementations render a crawl report in one format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// Format names an output format.
type Format string

const (
	// FormatPDF renders one section per page, like the classic SEO report.
	FormatPDF Format = "pdf"
	// FormatMarkdown renders tables and a severity chart.
	FormatMarkdown Format = "markdown"
	// FormatJSON renders the full report as JSON.
	FormatJSON Format = "json"
	// FormatText renders human-readable text for the terminal.
	FormatText Format = "text"
)

// FormatFromPath picks a format from the extension of path.
// Unknown extensions fall back to text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".md", ".markdown":
		return FormatMarkdown
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// NewWriter returns the Writer for format.
// version is embedded in JSON output and the report footers.
func NewWriter(format Format, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatPDF:
		return NewPDFWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatText:
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// summaryOf returns the report's summary, deriving it when missing.
func summaryOf(report *model.CrawlReport) *model.Summary {
	if report.Summary == nil {
		report.Summary = model.NewSummary(report)
	}
	return report.Summary
}

// statusText describes how the crawl ended.
func statusText(report *model.CrawlReport) string {
	switch {
	case report.TimedOut:
		return "Timed Out (partial results)"
	case report.ErrorMessage != "":
		return "Error - " + report.ErrorMessage
	default:
		return "Complete"
	}
}
