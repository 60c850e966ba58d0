package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// SummaryItem is a labelled figure printed beneath the table.
type SummaryItem struct {
	Label string
	Value string
}

// Bar is a single value in a horizontal bar block.
type Bar struct {
	Label string
	Value float64
}

// Document groups everything a rendered report contains.
type Document struct {
	Title      string
	Subtitle   string
	Data       Dataset
	Summary    []SummaryItem
	ChartTitle string
	Chart      []Bar
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the document table followed by its summary lines.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	data := doc.Data
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	if len(doc.Summary) > 0 {
		if err := writer.Write(nil); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
		for _, item := range doc.Summary {
			if err := writer.Write([]string{item.Label, item.Value}); err != nil {
				return nil, fmt.Errorf("write csv summary: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
