package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"civreply/internal/config"
	"civreply/internal/models"
)

// GeminiClient serves both embeddings and completions from the Google
// Generative AI API, so a single client can back the whole pipeline.
type GeminiClient struct {
	client         *genai.Client
	embeddingModel string
	economyModel   string
	premiumModel   string
}

// NewGeminiClient dials the Gemini API.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		embeddingModel: cfg.EmbeddingModel,
		economyModel:   cfg.EconomyModel,
		premiumModel:   cfg.PremiumModel,
	}, nil
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// ModelFor resolves a plan tier to a concrete model name.
func (g *GeminiClient) ModelFor(tier models.ModelTier) string {
	if tier == models.TierPremium {
		return g.premiumModel
	}
	return g.economyModel
}

// Embed returns the embedding vector for text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Complete generates text for prompt using the model of the given tier.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error) {
	model := g.client.GenerativeModel(g.ModelFor(tier))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}

	return sb.String(), nil
}
