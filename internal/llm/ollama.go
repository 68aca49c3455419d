// Package llm provides generative model clients. Each client maps the plan's
// model tier to one of its configured models, so call sites never name models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"civreply/internal/config"
	"civreply/internal/models"
)

// OllamaClient completes prompts against a local Ollama instance.
type OllamaClient struct {
	baseURL      string
	economyModel string
	premiumModel string
	client       *http.Client
}

// NewOllamaClient builds a client from service configuration.
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	return &OllamaClient{
		baseURL:      cfg.BaseURL,
		economyModel: cfg.EconomyModel,
		premiumModel: cfg.PremiumModel,
		client:       &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// ModelFor resolves a plan tier to a concrete model name.
func (o *OllamaClient) ModelFor(tier models.ModelTier) string {
	if tier == models.TierPremium {
		return o.premiumModel
	}
	return o.economyModel
}

// Complete generates text for prompt using the model of the given tier.
func (o *OllamaClient) Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error) {
	reqBody := map[string]interface{}{
		"model":  o.ModelFor(tier),
		"prompt": prompt,
		"stream": false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate request failed: %s", resp.Status)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	return result.Response, nil
}
