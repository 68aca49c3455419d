// Package answer turns retrieved chunks and a question into a grounded,
// natural-language answer.
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

// NoInformationAnswer is returned whenever retrieval produced nothing usable.
// The model is never consulted in that case: an ungrounded answer about
// council policy is worse than no answer.
const NoInformationAnswer = "I don't have enough information in the council's documents to answer that question. Please contact the council directly or ask an administrator to upload the relevant documents."

// Completer generates text from a prompt using the model of the given tier.
type Completer interface {
	Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error)
	ModelFor(tier models.ModelTier) string
}

// Generator composes grounded prompts and calls the model service. The model
// tier comes from the plan table, never from call sites.
type Generator struct {
	completer Completer

	// retryDelay is the backoff before the single retry of a failed
	// generation call.
	retryDelay time.Duration
}

// NewGenerator wires a generator to a model client.
func NewGenerator(completer Completer) *Generator {
	return &Generator{
		completer:  completer,
		retryDelay: 500 * time.Millisecond,
	}
}

// Generate answers question from chunks under the given plan. An empty chunk
// list short-circuits to NoInformationAnswer.
func (g *Generator) Generate(ctx context.Context, question string, chunks []models.Chunk, plan models.Plan) (string, error) {
	if len(chunks) == 0 {
		return NoInformationAnswer, nil
	}

	policy, ok := models.PolicyFor(plan)
	if !ok {
		return "", fmt.Errorf("unknown plan: %s", plan)
	}

	prompt := buildPrompt(question, chunks)

	text, err := g.completer.Complete(ctx, prompt, policy.ModelTier)
	if err != nil {
		// Model service hiccups are common enough to warrant one retry.
		log.Printf("ANSWER: generation failed, retrying once: %v", err)
		select {
		case <-time.After(g.retryDelay):
		case <-ctx.Done():
			return "", &cerr.GenerationError{Model: g.completer.ModelFor(policy.ModelTier), Cause: ctx.Err()}
		}

		text, err = g.completer.Complete(ctx, prompt, policy.ModelTier)
		if err != nil {
			return "", &cerr.GenerationError{Model: g.completer.ModelFor(policy.ModelTier), Cause: err}
		}
	}

	return strings.TrimSpace(text), nil
}

func buildPrompt(question string, chunks []models.Chunk) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant answering residents' questions about their local council using official council documents.\n\n")
	sb.WriteString("Context documents:\n")

	for i, chunk := range chunks {
		if chunk.Page > 0 {
			sb.WriteString(fmt.Sprintf("\nExtract %d (from %s, page %d):\n", i+1, chunk.Document, chunk.Page))
		} else {
			sb.WriteString(fmt.Sprintf("\nExtract %d (from %s):\n", i+1, chunk.Document))
		}
		sb.WriteString(chunk.Text)
		sb.WriteString("\n---\n")
	}

	sb.WriteString(fmt.Sprintf("\nQuestion: %s\n", question))
	sb.WriteString("\nAnswer the question using ONLY the information in the extracts above. If the extracts do not contain the answer, say so clearly instead of guessing. Mention which document the answer comes from.\n\nAnswer: ")

	return sb.String()
}
