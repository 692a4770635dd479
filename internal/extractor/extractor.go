package extractor

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrOrderNumberNotFound  = errors.New("no order number found in document")
	ErrOrderNumberAmbiguous = errors.New("multiple candidate order numbers found in document")
)

// Extractor produces a best-effort order number for a document. Results must
// be deterministic for the same content; callers treat a failure as an
// unmatched document, never as a batch error.
type Extractor interface {
	ExtractOrderNumber(path string) (string, error)
}

// BisTrack order numbers are seven digits. Drawing file names usually carry
// the number somewhere in the stem, e.g. "4033090 RH-913-DRAKE-PROD.pdf".
var orderNumberPattern = regexp.MustCompile(`\b(\d{7})\b`)

// FilenameExtractor matches the order number out of the file name alone. It
// never opens the file, so it also works on exports and non-PDF documents.
type FilenameExtractor struct{}

func NewFilenameExtractor() *FilenameExtractor {
	return &FilenameExtractor{}
}

func (e *FilenameExtractor) ExtractOrderNumber(path string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return matchOrderNumber(stem)
}

// matchOrderNumber applies the shared pattern and classifies the outcome:
// exactly one distinct candidate wins, none is not-found, several is
// ambiguous and left for manual attachment.
func matchOrderNumber(text string) (string, error) {
	matches := orderNumberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return "", ErrOrderNumberNotFound
	}

	distinct := make(map[string]bool)
	for _, m := range matches {
		distinct[m] = true
	}
	if len(distinct) > 1 {
		return "", ErrOrderNumberAmbiguous
	}
	return matches[0], nil
}

// ChainExtractor tries each extractor in order and returns the first
// definite answer. An ambiguous result stops the chain; a later extractor
// must not override a conflict an earlier one already detected.
type ChainExtractor struct {
	extractors []Extractor
}

func NewChainExtractor(extractors ...Extractor) *ChainExtractor {
	return &ChainExtractor{extractors: extractors}
}

func (e *ChainExtractor) ExtractOrderNumber(path string) (string, error) {
	var err error = ErrOrderNumberNotFound
	for _, next := range e.extractors {
		number, nextErr := next.ExtractOrderNumber(path)
		if nextErr == nil {
			return number, nil
		}
		if errors.Is(nextErr, ErrOrderNumberAmbiguous) {
			return "", nextErr
		}
		err = nextErr
	}
	return "", err
}
