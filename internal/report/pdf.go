package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/nao1215/seoscan/internal/model"
)

const (
	pdfMargin     = 10.0
	pdfLineHeight = 6.0
	pdfFontFamily = "Helvetica"
)

// PDFWriter renders the classic SEO report: one section per crawled page
// with a bold heading, the page messages and both probe results.
type PDFWriter struct {
	baseWriter
}

// NewPDFWriter creates a PDFWriter that outputs to the given writer.
func NewPDFWriter(output io.Writer) *PDFWriter {
	return &PDFWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the report as a PDF document.
// The document is built in memory so a failed render writes nothing.
func (w *PDFWriter) Write(report *model.CrawlReport) (int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("SEO Report", true)
	pdf.SetCreator("SEOScan", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	// Core fonts are cp1252; titles and URLs may carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(report.Pages) == 0 {
		pdf.SetFont(pdfFontFamily, "", 11)
		pdf.MultiCell(0, pdfLineHeight, tr("No pages crawled from "+report.Seed), "", "L", false)
	}

	for _, page := range report.Pages {
		pdf.SetFont(pdfFontFamily, "B", 12)
		pdf.MultiCell(0, pdfLineHeight, tr("SEO Report for "+page.URL), "", "L", false)

		pdf.SetFont(pdfFontFamily, "", 11)
		for _, msg := range page.Messages {
			pdf.MultiCell(0, pdfLineHeight, tr(msg), "", "L", false)
		}
		pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("robots.txt found: %t", page.HasRobots), "", "L", false)
		pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("sitemap.xml found: %t", page.HasSitemap), "", "L", false)
		pdf.Ln(pdfLineHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("failed to render PDF: %w", err)
	}
	return w.output.Write(buf.Bytes())
}
