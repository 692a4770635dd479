package scanner

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"drawing_tracker/internal/models"
)

// CSVScanner reads the comma-separated variant of the BisTrack export. Same
// columns as the HTML report, first line is the header.
type CSVScanner struct{}

func NewCSVScanner() *CSVScanner {
	return &CSVScanner{}
}

func (s *CSVScanner) Scan(path string) ([]models.OrderRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // trailing summary rows are ragged

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read export header: %w", err)
	}

	columns := make(map[int]string)
	for i, cell := range header {
		if name := normalizeHeader(cell); name != "" {
			columns[i] = name
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("export %s has no recognizable header row", path)
	}

	var records []models.OrderRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export row: %w", err)
		}

		cells := make(map[string]string)
		for i, value := range row {
			if name, ok := columns[i]; ok {
				cells[name] = value
			}
		}
		if cells["order_number"] == "" {
			continue
		}

		record, err := buildRecord(cells)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
