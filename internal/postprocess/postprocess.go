// Package postprocess handles answer translation and source citation
// extraction, kept apart from prompt construction so each is testable alone.
package postprocess

import (
	"context"
	"fmt"
	"log"
	"strings"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

// UntranslatedMarker prefixes an answer whose translation failed. The reader
// still gets the full original answer, visibly flagged.
const UntranslatedMarker = "[untranslated]"

// sourceLanguage is the language answers are generated in.
const sourceLanguage = "en"

// Translator renders text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Processor applies post-generation steps to an answer.
type Processor struct {
	translator Translator
}

// NewProcessor wires a processor to a translator.
func NewProcessor(translator Translator) *Processor {
	return &Processor{translator: translator}
}

// Translate returns the answer in targetLanguage. Requests for the source
// language pass through unchanged. Translation failures degrade to the
// original text behind a visible marker and report a TranslationError; they
// never yield an empty or truncated answer.
func (p *Processor) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(targetLanguage))
	if lang == "" || lang == sourceLanguage {
		return text, nil
	}

	translated, err := p.translator.Translate(ctx, text, lang)
	if err != nil || strings.TrimSpace(translated) == "" {
		if err == nil {
			err = fmt.Errorf("translator returned empty text")
		}
		log.Printf("POSTPROCESS: translation to %s failed, returning original: %v", lang, err)
		return UntranslatedMarker + " " + text, &cerr.TranslationError{Language: lang, Cause: err}
	}

	return translated, nil
}

// ExtractCitations collects the distinct (document, page) provenance pairs of
// the retrieved chunks, in first-seen order.
func ExtractCitations(chunks []models.Chunk) []models.Citation {
	seen := make(map[string]bool, len(chunks))
	citations := make([]models.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		key := fmt.Sprintf("%s#%d", chunk.Document, chunk.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, models.Citation{Document: chunk.Document, Page: chunk.Page})
	}
	return citations
}
