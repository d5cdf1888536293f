package generate

import "context"

const defaultMockResponse = "OK (mock): response generated without an external provider."

// Mock is a deterministic offline provider, used for tests and for
// running the gate without a backend.
type Mock struct {
	Response string
}

// NewMock creates a mock provider with the default fixed response.
func NewMock() *Mock {
	return &Mock{Response: defaultMockResponse}
}

// Generate returns the fixed response. It still honors context
// cancellation so timeout behavior is uniform across providers.
func (m *Mock) Generate(ctx context.Context, prompt string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{
		Text:           m.Response,
		Provider:       "mock",
		PromptTokens:   wordCount(prompt),
		ResponseTokens: wordCount(m.Response),
	}, nil
}
