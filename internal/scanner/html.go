package scanner

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"

	"drawing_tracker/internal/models"
)

// HTMLScanner reads the BisTrack "Orders Due" HTML report. The report is a
// single table with one header row; any surrounding markup varies between
// BisTrack versions and is ignored.
type HTMLScanner struct{}

func NewHTMLScanner() *HTMLScanner {
	return &HTMLScanner{}
}

func (s *HTMLScanner) Scan(path string) ([]models.OrderRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("export %s contains no table", path)
	}

	// Header row → column positions we care about.
	columns := make(map[int]string)
	table.Find("tr").First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
		if name := normalizeHeader(cell.Text()); name != "" {
			columns[i] = name
		}
	})
	if len(columns) == 0 {
		return nil, fmt.Errorf("export %s has no recognizable header row", path)
	}

	var records []models.OrderRecord
	var rowErr error
	table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 || rowErr != nil {
			return
		}

		cells := make(map[string]string)
		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			if name, ok := columns[i]; ok {
				cells[name] = cell.Text()
			}
		})
		if cells["order_number"] == "" {
			return // spacer or summary row
		}

		record, err := buildRecord(cells)
		if err != nil {
			rowErr = err
			return
		}
		records = append(records, record)
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return records, nil
}
