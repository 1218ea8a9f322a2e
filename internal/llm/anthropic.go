package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const jsonSystemPrompt = "You are an expert accountant. Respond with a single JSON object only, " +
	"without markdown fences or commentary."

// defaultAnthropicMaxTokens is used when a request carries no token ceiling.
const defaultAnthropicMaxTokens = 1024

// AnthropicClient implements Client for Anthropic Claude
type AnthropicClient struct {
	client sdk.Client
	config *Config
}

// NewAnthropicClient creates a new Anthropic client. The SDK's own retries are
// disabled so each call is a single attempt.
func NewAnthropicClient(config *Config, apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, eris.New("anthropic: API key is required")
	}

	return &AnthropicClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		config: config,
	}, nil
}

// GenerateJSON generates JSON content using the model of the request's tier
func (c *AnthropicClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return "", c.upstream(modelName, eris.Errorf("no model configured for tier %s", req.Tier))
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(modelName),
		MaxTokens:   maxTokens,
		System:      []sdk.TextBlockParam{{Text: jsonSystemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		Temperature: sdk.Float(0.1),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", c.upstream(modelName, eris.Wrap(err, "anthropic: create message"))
	}

	zap.L().Debug("llm usage",
		zap.String("provider", string(ProviderAnthropic)),
		zap.String("model", modelName),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", c.upstream(modelName, eris.New("no text content in response"))
	}

	return CleanJSONBlock(sb.String()), nil
}

// Model returns the model name for a tier
func (c *AnthropicClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (c *AnthropicClient) Close() error {
	return nil
}

func (c *AnthropicClient) upstream(model string, err error) *UpstreamError {
	return &UpstreamError{Provider: ProviderAnthropic, Model: model, Err: err}
}
