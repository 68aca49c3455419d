package postprocess

import (
	"context"
	"fmt"
	"strings"

	"civreply/internal/models"
)

// Completer is the slice of the model client the translator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error)
}

// LLMTranslator translates via the generative model on the economy tier;
// translation quality does not warrant premium-model cost.
type LLMTranslator struct {
	completer Completer
}

// NewLLMTranslator wires a translator to a model client.
func NewLLMTranslator(completer Completer) *LLMTranslator {
	return &LLMTranslator{completer: completer}
}

// Translate renders text into targetLanguage.
func (t *LLMTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following answer into the language with code %q. Preserve the meaning exactly and return only the translation.\n\n%s",
		targetLanguage, text)

	translated, err := t.completer.Complete(ctx, prompt, models.TierEconomy)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(translated), nil
}
