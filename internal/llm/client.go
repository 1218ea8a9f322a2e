package llm

import (
	"context"

	"github.com/rotisserie/eris"
)

// Request is a single structured-output completion request.
type Request struct {
	Prompt    string
	MaxTokens int
	Tier      ModelTier
}

// Client is an abstraction over LLM providers. Implementations make exactly
// one attempt per call and report every failure as an *UpstreamError.
type Client interface {
	// GenerateJSON asks the model for a single JSON object and returns the raw text
	GenerateJSON(ctx context.Context, req Request) (string, error)
	// Model returns the provider model used for a tier
	Model(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderAnthropic:
		return NewAnthropicClient(config, apiKey)
	case ProviderDisabled:
		return NewDisabledClient(), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", config.Provider)
	}
}
