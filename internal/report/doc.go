// Package report renders crawl reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Tables and a severity chart for sharing
//   - PDFWriter: One section per crawled page
//
// Report data lives in the model package; writers only format it.
// Writers implement the Writer interface and can be composed with
// MultiWriter. NewWriter and FormatFromPath select a writer from a
// format name or an output file extension.
package report
