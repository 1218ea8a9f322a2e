// Package llm provides the language model gateway used by chart of accounts
// generation and transaction categorization.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for single-shot classification such as transaction categorization
	TierLite ModelTier = "lite"
	// TierStandard is for structured output of moderate size (pipeline stages 1-4)
	TierStandard ModelTier = "standard"
	// TierAdvanced is for large structured output (complete account lists)
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
	// ProviderDisabled never calls out; every request fails upstream so callers fall back
	ProviderDisabled Provider = "disabled"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-haiku-4-5-20251001",
			TierStandard: "claude-sonnet-4-5-20250929",
			TierAdvanced: "claude-sonnet-4-5-20250929",
		},
	}
}

// ConfigFor returns the default configuration of a provider. A non-empty
// model overrides every tier.
func ConfigFor(provider Provider, model string) *Config {
	var cfg *Config
	switch provider {
	case ProviderAnthropic:
		cfg = DefaultAnthropicConfig()
	case ProviderDisabled:
		cfg = &Config{Provider: ProviderDisabled, Models: map[ModelTier]string{}}
	default:
		cfg = DefaultGeminiConfig()
	}

	if model == "" {
		return cfg
	}
	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		cfg = cfg.WithModel(tier, model)
	}
	return cfg
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
