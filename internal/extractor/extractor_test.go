package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameExtractor(t *testing.T) {
	ex := NewFilenameExtractor()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"number prefix", `C:\drawings\4033090 RH-913-DRAKE-PROD.pdf`, "4033090", nil},
		{"number only", "/drawings/4033090.pdf", "4033090", nil},
		{"number embedded", "/drawings/DRAKE_4033090_PROD.pdf", "4033090", nil},
		{"repeated same number", "/drawings/4033090-4033090.pdf", "4033090", nil},
		{"no number", "/drawings/RH-913-DRAKE-PROD.pdf", "", ErrOrderNumberNotFound},
		{"too short", "/drawings/913.pdf", "", ErrOrderNumberNotFound},
		{"too long", "/drawings/40330901234.pdf", "", ErrOrderNumberNotFound},
		{"two different numbers", "/drawings/4033090-4033091.pdf", "", ErrOrderNumberAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.ExtractOrderNumber(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilenameExtractorIsDeterministic(t *testing.T) {
	ex := NewFilenameExtractor()

	first, err := ex.ExtractOrderNumber("/drawings/4033090.pdf")
	require.NoError(t, err)
	second, err := ex.ExtractOrderNumber("/drawings/4033090.pdf")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type stubExtractor struct {
	number string
	err    error
}

func (s stubExtractor) ExtractOrderNumber(string) (string, error) {
	return s.number, s.err
}

func TestChainExtractorFallsThrough(t *testing.T) {
	chain := NewChainExtractor(
		stubExtractor{err: ErrOrderNumberNotFound},
		stubExtractor{number: "4033090"},
	)

	got, err := chain.ExtractOrderNumber("whatever.pdf")
	require.NoError(t, err)
	assert.Equal(t, "4033090", got)
}

func TestChainExtractorStopsOnAmbiguity(t *testing.T) {
	// An earlier extractor found conflicting candidates; a later one must
	// not pick a winner.
	chain := NewChainExtractor(
		stubExtractor{err: ErrOrderNumberAmbiguous},
		stubExtractor{number: "4033090"},
	)

	_, err := chain.ExtractOrderNumber("whatever.pdf")
	assert.ErrorIs(t, err, ErrOrderNumberAmbiguous)
}

func TestChainExtractorAllFail(t *testing.T) {
	chain := NewChainExtractor(
		stubExtractor{err: ErrOrderNumberNotFound},
		stubExtractor{err: errors.New("pdf unreadable")},
	)

	_, err := chain.ExtractOrderNumber("whatever.pdf")
	assert.Error(t, err)
}
