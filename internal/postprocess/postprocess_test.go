package postprocess

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

type mockTranslator struct {
	calls  int
	fail   bool
	empty  bool
	result string
}

func (m *mockTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	m.calls++
	if m.fail {
		return "", errors.New("translation service down")
	}
	if m.empty {
		return "   ", nil
	}
	if m.result != "" {
		return m.result, nil
	}
	return "[" + lang + "] " + text, nil
}

func TestTranslatePassThroughForSourceLanguage(t *testing.T) {
	translator := &mockTranslator{}
	p := NewProcessor(translator)

	for _, lang := range []string{"", "en", "EN", " en "} {
		got, err := p.Translate(context.Background(), "Bins are collected Tuesday.", lang)
		require.NoError(t, err)
		assert.Equal(t, "Bins are collected Tuesday.", got)
	}
	assert.Zero(t, translator.calls)
}

func TestTranslateToTargetLanguage(t *testing.T) {
	p := NewProcessor(&mockTranslator{})

	got, err := p.Translate(context.Background(), "Bins are collected Tuesday.", "vi")
	require.NoError(t, err)
	assert.Equal(t, "[vi] Bins are collected Tuesday.", got)
}

func TestTranslateDegradesOnFailure(t *testing.T) {
	p := NewProcessor(&mockTranslator{fail: true})

	got, err := p.Translate(context.Background(), "Bins are collected Tuesday.", "vi")
	require.Error(t, err)

	var te *cerr.TranslationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "vi", te.Language)

	// The original answer survives, visibly marked, never empty.
	assert.True(t, strings.HasPrefix(got, UntranslatedMarker))
	assert.Contains(t, got, "Bins are collected Tuesday.")
}

func TestTranslateDegradesOnEmptyResult(t *testing.T) {
	p := NewProcessor(&mockTranslator{empty: true})

	got, err := p.Translate(context.Background(), "original", "vi")
	require.Error(t, err)
	assert.Contains(t, got, "original")
	assert.True(t, strings.HasPrefix(got, UntranslatedMarker))
}

func TestExtractCitationsDeduplicatesInOrder(t *testing.T) {
	chunks := []models.Chunk{
		models.NewChunk("wyndham", "bins.pdf", 2, 0, "a"),
		models.NewChunk("wyndham", "bins.pdf", 2, 1, "b"),
		models.NewChunk("wyndham", "bins.pdf", 3, 2, "c"),
		models.NewChunk("wyndham", "parks.pdf", 1, 0, "d"),
	}

	citations := ExtractCitations(chunks)
	require.Len(t, citations, 3)
	assert.Equal(t, models.Citation{Document: "bins.pdf", Page: 2}, citations[0])
	assert.Equal(t, models.Citation{Document: "bins.pdf", Page: 3}, citations[1])
	assert.Equal(t, models.Citation{Document: "parks.pdf", Page: 1}, citations[2])
}

func TestExtractCitationsEmpty(t *testing.T) {
	assert.Empty(t, ExtractCitations(nil))
}
