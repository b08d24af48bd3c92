package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Column widths in millimetres, sized for an A4 portrait page. The name
// column takes the remainder so long names stay readable.
var rosterColWidths = []float64{42, 83, 30, 35}

// PDFExporter renders a graduation roster as a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the roster PDF with a centred title above the table.
func (e *PDFExporter) Render(roster Roster, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title == "" {
		title = fmt.Sprintf("Graduation Roster %s", roster.Program)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	for i, column := range rosterColumns {
		pdf.CellFormat(rosterColWidths[i], 8, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range roster.Rows {
		for i, cell := range row.cells() {
			align := ""
			if i >= 2 {
				align = "C"
			}
			pdf.CellFormat(rosterColWidths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render roster pdf: %w", err)
	}
	return buf.Bytes(), nil
}
