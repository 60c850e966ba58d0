package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0 // A4 landscape minus margins
	chartHeight = 6.0
)

// PDFExporter renders report documents into a tabular landscape PDF.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a PDF with title, table, summary block and an optional bar block.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	data := doc.Data
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s - page %d", e.now().UTC().Format(time.RFC1123), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	colWidth := pageWidth / float64(len(data.Headers))
	writeHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 235, 220)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	writeHeader()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-20 {
			pdf.AddPage()
			writeHeader()
		}
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, truncate(row[header], colWidth), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.CellFormat(pageWidth, 7, "No records", "1", 1, "C", false, 0, "")
	}

	if len(doc.Summary) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, "Summary", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, item := range doc.Summary {
			pdf.CellFormat(70, 6, item.Label, "", 0, "", false, 0, "")
			pdf.CellFormat(0, 6, item.Value, "", 1, "", false, 0, "")
		}
	}

	if len(doc.Chart) > 0 {
		e.renderBars(pdf, doc.ChartTitle, doc.Chart)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderBars(pdf *gofpdf.Fpdf, title string, bars []Bar) {
	maxValue := 0.0
	for _, bar := range bars {
		if bar.Value > maxValue {
			maxValue = bar.Value
		}
	}
	pdf.Ln(6)
	if title != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, title, "", 1, "", false, 0, "")
	}
	pdf.SetFont("Arial", "", 8)
	const labelWidth = 50.0
	barArea := pageWidth - labelWidth - 30
	pdf.SetFillColor(60, 140, 80)
	for _, bar := range bars {
		x, y := pdf.GetXY()
		pdf.CellFormat(labelWidth, chartHeight, bar.Label, "", 0, "", false, 0, "")
		width := 0.0
		if maxValue > 0 {
			width = barArea * bar.Value / maxValue
		}
		if width > 0 {
			pdf.Rect(x+labelWidth, y+1, width, chartHeight-2, "F")
		}
		pdf.SetXY(x+labelWidth+width+2, y)
		pdf.CellFormat(28, chartHeight, fmt.Sprintf("%.2f", bar.Value), "", 1, "", false, 0, "")
	}
}

func truncate(value string, width float64) string {
	limit := int(width / 1.8)
	if limit < 4 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
