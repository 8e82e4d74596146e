package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/seoscan/internal/model"
)

// createTestReport creates a report with one clean page and one page with issues.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport("http://example.com/", 5)
	report.AddPage(model.NewPageReport("http://example.com/", model.Signals{
		Title:           model.StringPtr("Example Domain Home"),
		MetaDescription: model.StringPtr(strings.Repeat("d", 80)),
		Canonical:       model.StringPtr("http://example.com/"),
	}, model.Presence{Robots: true, Sitemap: false}, 0, 0))
	report.AddPage(model.NewPageReport("http://example.com/about", model.Signals{
		MetaDescription: model.StringPtr(""),
		MissingAltCount: 2,
	}, model.Presence{Robots: true, Sitemap: false}, 1, 1))
	report.Finish()
	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEOSCAN REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "http://example.com/") {
			t.Error("expected output to contain seed URL")
		}
		if !strings.Contains(output, "Status:         Complete") {
			t.Error("expected complete status")
		}
	})

	t.Run("writes every page section", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"SEO Report for http://example.com/\n",
			"SEO Report for http://example.com/about\n",
			"[+] Title found: Example Domain Home",
			"[-] Missing <title> tag",
			"[-] Empty meta description",
			"[-] Images missing alt text: 2",
			"robots.txt found: true",
			"sitemap.xml found: false",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes severity summary and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEVERITY SUMMARY") {
			t.Error("expected severity summary")
		}
		if !strings.Contains(output, "HIGH:     1") {
			t.Error("expected one high finding")
		}
		if !strings.Contains(output, "[!!] HIGH") {
			t.Error("expected high findings section")
		}
		if !strings.Contains(output, "Location: http://example.com/sitemap.xml") {
			t.Error("expected sitemap finding at host root")
		}
	})

	t.Run("verbose adds recommendations", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Recommendation:") {
			t.Error("expected recommendations in verbose output")
		}
	})

	t.Run("empty report hides sections unless requested", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("http://example.com/", 5)

		var quiet bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(quiet.String(), "PAGES") {
			t.Error("did not expect pages section")
		}

		var loud bytes.Buffer
		if _, err := NewSimpleWriter(&loud, WithShowEmpty(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(loud.String(), "No pages crawled") {
			t.Error("expected empty pages notice")
		}
		if !strings.Contains(loud.String(), "No findings") {
			t.Error("expected empty findings notice")
		}
	})

	t.Run("shows timeout and error status", func(t *testing.T) {
		t.Parallel()

		timedOut := model.NewCrawlReport("http://example.com/", 5)
		timedOut.TimedOut = true
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(timedOut); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Timed Out") {
			t.Error("expected timed out status")
		}

		failed := model.NewCrawlReport("http://example.com/", 5)
		failed.SetError(errors.New("context canceled"))
		buf.Reset()
		if _, err := NewSimpleWriter(&buf).Write(failed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Error - context canceled") {
			t.Error("expected error status")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON with summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := createTestReport()
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(decoded.Pages))
		}
		if decoded.Summary == nil || decoded.Summary.HighCount != 1 {
			t.Errorf("expected summary with one high finding, got %+v", decoded.Summary)
		}
		if report.Summary == nil {
			t.Error("expected summary to be attached to the report")
		}
	})

	t.Run("keeps null distinct from empty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := createTestReport()
		if _, err := NewJSONWriter(&buf).WritePages(report.Pages[1:]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, `"title":null`) {
			t.Errorf("expected null title, got %s", output)
		}
		if !strings.Contains(output, `"meta_description":""`) {
			t.Errorf("expected empty description, got %s", output)
		}
	})

	t.Run("nil pages encode as empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WritePages(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n\t\"seed\"") {
			t.Error("expected tab-indented output")
		}
	})
}

// TestFullJSONWriter tests the version wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version string             `json:"version"`
		Report  *model.CrawlReport `json:"report"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", decoded.Version)
	}
	if decoded.Report == nil || decoded.Report.Seed != "http://example.com/" {
		t.Errorf("unexpected report %+v", decoded.Report)
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header pages and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero byte count")
		}

		output := buf.String()
		for _, want := range []string{
			"# SEOScan Report",
			"## Severity Summary",
			"## Pages",
			"## Findings",
			"`http://example.com/about`",
			"(empty)",
			"```mermaid",
			"[!WARNING]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("clean report shows tip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewCrawlReport("http://example.com/", 5)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
		if !strings.Contains(output, "No pages crawled.") {
			t.Error("expected empty pages notice")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("did not expect chart without findings")
		}
	})
}

// TestPDFWriter tests the PDF report writer.
func TestPDFWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders a PDF document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewPDFWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected byte count %d, got %d", buf.Len(), n)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
			t.Error("expected PDF header")
		}
	})

	t.Run("renders an empty crawl", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewPDFWriter(&buf).Write(model.NewCrawlReport("http://example.com/", 5)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
			t.Error("expected PDF header")
		}
	})

	t.Run("handles non-ASCII titles", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("http://example.com/", 5)
		report.AddPage(model.NewPageReport("http://example.com/", model.Signals{
			Title: model.StringPtr("Café résumé"),
		}, model.Presence{}, 0, 0))

		var buf bytes.Buffer
		if _, err := NewPDFWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

// TestFormatFromPath tests format selection from file extensions.
func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path     string
		expected Format
	}{
		{"seo_report.pdf", FormatPDF},
		{"REPORT.PDF", FormatPDF},
		{"out/report.md", FormatMarkdown},
		{"report.markdown", FormatMarkdown},
		{"report.json", FormatJSON},
		{"report.txt", FormatText},
		{"report", FormatText},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			if got := FormatFromPath(tc.path); got != tc.expected {
				t.Errorf("FormatFromPath(%q) = %q, expected %q", tc.path, got, tc.expected)
			}
		})
	}
}

// TestNewWriter tests the writer factory.
func TestNewWriter(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{FormatPDF, FormatMarkdown, FormatJSON, FormatText} {
		w, err := NewWriter(f, &bytes.Buffer{}, "dev")
		if err != nil {
			t.Errorf("NewWriter(%q): unexpected error: %v", f, err)
		}
		if w == nil {
			t.Errorf("NewWriter(%q): expected writer", f)
		}
	}

	if _, err := NewWriter("xml", &bytes.Buffer{}, "dev"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in       string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"日本語テキスト", 5, "日本..."},
		{"abcdef", 2, "ab"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tc.in, tc.maxLen); got != tc.expected {
				t.Errorf("truncateString(%q, %d) = %q, expected %q", tc.in, tc.maxLen, got, tc.expected)
			}
		})
	}
}
