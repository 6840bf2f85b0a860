package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0 // A4 landscape minus margins
	rowHeight  = 7.0
	headHeight = 8.0
)

// PDFExporter renders datasets into a landscape table with a repeating header row.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := columnWidths(data)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		if data.Title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 236, 245)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], headHeight, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], rowHeight, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits the page proportionally to the longest value per column.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		longest := utf8.RuneCountInString(header)
		for _, row := range data.Rows {
			if n := utf8.RuneCountInString(row[header]); n > longest {
				longest = n
			}
		}
		if longest < 4 {
			longest = 4
		}
		weights[i] = float64(longest)
		total += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / total * pageWidth
	}
	return weights
}
