package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/noah-isme/student-records/internal/models"
)

var rosterHeaders = []string{"id", "name", "dob", "group"}

// CSVExporter renders student rosters into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the roster, one row per student.
func (e *CSVExporter) Render(students []models.Student) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, s := range students {
		record := []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.DOB.Format("2006-01-02"),
			string(s.Group),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
