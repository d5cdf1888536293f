// Package generate defines the text-generation boundary: a single
// capability interface with provider variants selected by
// configuration. The pipeline core never branches on provider
// identity.
package generate

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Result is a successful generation.
type Result struct {
	Text           string `json:"response"`
	Provider       string `json:"provider"`
	Model          string `json:"model,omitempty"`
	PromptTokens   int    `json:"prompt_tokens"`
	ResponseTokens int    `json:"response_tokens"`
}

// Generator produces a response for a prompt. A failed generation is
// reported through the error, never through a partial Result; callers
// treat it as a pipeline error, distinct from a security block.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// Settings selects and configures a provider.
type Settings struct {
	Provider     string `yaml:"provider"`
	OllamaURL    string `yaml:"ollama_url"`
	OllamaModel  string `yaml:"ollama_model"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Normalize fills defaults and canonicalizes the provider name. The
// Gemini API key falls back to the GEMINI_API_KEY environment variable
// so the secret can stay out of config files.
func (s Settings) Normalize() Settings {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.Provider == "" {
		s.Provider = "mock"
	}
	s.OllamaURL = strings.TrimSpace(s.OllamaURL)
	if s.OllamaURL == "" {
		s.OllamaURL = "http://localhost:11434"
	}
	s.OllamaModel = strings.TrimSpace(s.OllamaModel)
	if s.OllamaModel == "" {
		s.OllamaModel = "llama3.1"
	}
	s.GeminiAPIKey = strings.TrimSpace(s.GeminiAPIKey)
	if s.GeminiAPIKey == "" {
		s.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	s.GeminiModel = strings.TrimSpace(s.GeminiModel)
	if s.GeminiModel == "" {
		s.GeminiModel = "gemini-2.0-flash"
	}
	return s
}

// New builds the configured provider. A gemini provider without an API
// key still constructs; the missing key errors on first use.
func New(settings Settings) (Generator, error) {
	settings = settings.Normalize()
	switch settings.Provider {
	case "mock":
		return NewMock(), nil
	case "ollama":
		return NewOllama(settings.OllamaURL, settings.OllamaModel), nil
	case "gemini":
		return NewGemini(settings.GeminiAPIKey, settings.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", settings.Provider)
	}
}

// wordCount is the rough token accounting used by both providers.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
