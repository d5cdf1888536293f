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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini generates text against the hosted Generative Language API.
// Construction never fails: a missing API key only surfaces when
// Generate is called, so the provider can be configured without being
// usable yet.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini-backed provider. Timeouts are driven by
// the caller's context, not a client-level deadline.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate calls the generateContent endpoint and returns the first
// candidate's text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (*Result, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	text := out.Candidates[0].Content.Parts[0].Text
	return &Result{
		Text:           text,
		Provider:       "gemini",
		Model:          g.model,
		PromptTokens:   wordCount(prompt),
		ResponseTokens: wordCount(text),
	}, nil
}
