package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"drawing_tracker/internal/extractor"
	"drawing_tracker/internal/models"
)

// PDFDirectoryScanner lists the shop drawing directory and pairs every PDF
// with the extractor's order-number guess. Extraction failures are recorded
// on the entry rather than returned, so one unreadable drawing never stops a
// scan.
type PDFDirectoryScanner struct {
	extractor extractor.Extractor
}

func NewPDFDirectoryScanner(ex extractor.Extractor) *PDFDirectoryScanner {
	return &PDFDirectoryScanner{extractor: ex}
}

func (s *PDFDirectoryScanner) Scan(dir string) ([]models.DiscoveredPDF, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing directory %s: %w", dir, err)
	}

	var discovered []models.DiscoveredPDF
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		pdf := models.DiscoveredPDF{Path: path}

		number, err := s.extractor.ExtractOrderNumber(path)
		if err != nil {
			pdf.ExtractErr = err.Error()
		} else {
			pdf.OrderNumber = number
		}
		discovered = append(discovered, pdf)
	}

	// Directory order is filesystem-dependent; sort for deterministic scans.
	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].Path < discovered[j].Path
	})
	return discovered, nil
}
