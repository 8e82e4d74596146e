package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/seoscan/internal/model"
)

// JSONWriter encodes reports as JSON. Absent page signals encode as null
// and present but empty ones as "".
type JSONWriter struct {
	baseWriter
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent turns on indented output using prefix and indent as in
// json.MarshalIndent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter returns a JSONWriter writing compact JSON to output
// unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes the report including its summary.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	summaryOf(report)
	return w.encode(report)
}

// WritePages encodes only the page records. A nil slice encodes as [].
func (w *JSONWriter) WritePages(pages []*model.PageReport) (int, error) {
	if pages == nil {
		pages = []*model.PageReport{}
	}
	return w.encode(pages)
}

func (w *JSONWriter) encode(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}

// JSONReport is the document written by FullJSONWriter: the crawl report
// tagged with the seoscan version that produced it.
type JSONReport struct {
	Version string             `json:"version"`
	Report  *model.CrawlReport `json:"report"`
}

// NewJSONReport tags report with version.
func NewJSONReport(report *model.CrawlReport, version string) *JSONReport {
	return &JSONReport{Version: version, Report: report}
}

// FullJSONWriter writes JSONReport documents. It backs `crawl --json`
// and `history --json`.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter returns a FullJSONWriter stamping version.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write encodes report wrapped in a JSONReport.
func (w *FullJSONWriter) Write(report *model.CrawlReport) (int, error) {
	summaryOf(report)
	return w.encode(NewJSONReport(report, w.version))
}
