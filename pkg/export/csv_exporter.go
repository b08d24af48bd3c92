package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a graduation roster as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces the CSV document for the roster. The column set is fixed;
// an empty roster still yields the header line.
func (e *CSVExporter) Render(roster Roster) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(rosterColumns); err != nil {
		return nil, fmt.Errorf("write roster header: %w", err)
	}
	for _, row := range roster.Rows {
		if err := writer.Write(row.cells()); err != nil {
			return nil, fmt.Errorf("write roster row %s: %w", row.StudentID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush roster csv: %w", err)
	}
	return buf.Bytes(), nil
}
