package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a rendered hours log: one row per logged day plus an
// optional totals band with the aggregated approved, pending and
// remaining figures.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Totals is keyed by header. When present it is rendered as a
	// distinct band after the day rows.
	Totals map[string]string
	// Widths are relative column weights for paginated formats. Ignored
	// by CSV. When empty every column gets the same width.
	Widths []float64
}

// CSVExporter renders an hours log as CSV for spreadsheet import.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. The totals band,
// if any, becomes the final record aligned under its columns.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(alignRecord(data.Headers, row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	if len(data.Totals) > 0 {
		if err := writer.Write(alignRecord(data.Headers, data.Totals)); err != nil {
			return nil, fmt.Errorf("write csv totals: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func alignRecord(headers []string, row map[string]string) []string {
	record := make([]string, len(headers))
	for i, header := range headers {
		record[i] = row[header]
	}
	return record
}
