package extractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor pulls the order number out of the drawing's first page
// text. Shop drawings print the order number in the title block, so one page
// is enough and keeps scans of large plot files cheap.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

func (e *PDFTextExtractor) ExtractOrderNumber(path string) (string, error) {
	text, err := readFirstPageText(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderNumberNotFound, err)
	}
	return matchOrderNumber(text)
}

func readFirstPageText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return "", fmt.Errorf("pdf has no pages")
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf first page is empty")
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			builder.WriteString(word.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
