package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama generates text against a local Ollama server.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama-backed provider. Timeouts are driven by
// the caller's context, not a client-level deadline.
func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate calls the Ollama generate endpoint and returns the full
// (non-streamed) response.
func (o *Ollama) Generate(ctx context.Context, prompt string) (*Result, error) {
	payload, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("encoding ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}

	return &Result{
		Text:           out.Response,
		Provider:       "ollama",
		Model:          o.model,
		PromptTokens:   wordCount(prompt),
		ResponseTokens: wordCount(out.Response),
	}, nil
}
