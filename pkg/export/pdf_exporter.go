package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// PDFExporter renders documents into a single-table A4 PDF.
type PDFExporter struct {
	// NumericColumns are right-aligned.
	NumericColumns map[string]bool
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(numeric ...string) *PDFExporter {
	cols := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		cols[c] = true
	}
	return &PDFExporter{NumericColumns: cols}
}

// Render creates the PDF: title, summary block, then the table with a
// repeated header row on every page.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	headers := doc.Data.Headers
	if len(headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(doc.Title, true)
	colWidth := pageWidth / float64(len(headers))

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, header := range headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			drawHeader()
		}
	})
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}
	if len(doc.Summary) > 0 {
		for _, field := range doc.Summary {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(50, 6, field.Label, "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 6, field.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	drawHeader()
	for _, row := range doc.Data.Rows {
		for _, header := range headers {
			align := "L"
			if e.NumericColumns[header] {
				align = "R"
			}
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
