package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `{"category": "Travel Expenses", "confidence": 0.9}`,
			want:  map[string]any{"category": "Travel Expenses", "confidence": 0.9},
		},
		{
			name:  "fenced object",
			input: "```json\n{\"code\": \"6401\"}\n```",
			want:  map[string]any{"code": "6401"},
		},
		{name: "array is rejected", input: `["a"]`, wantErr: true},
		{name: "prose is rejected", input: "I cannot help with that.", wantErr: true},
		{name: "truncated object", input: `{"code": "64`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			err := DecodeObject(tt.input, &got)
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.input, parseErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	upstream := &UpstreamError{Provider: ProviderGemini, Model: "gemini-2.5-flash", Err: context.DeadlineExceeded}
	parse := &ParseError{Err: errors.New("bad json")}

	assert.True(t, IsRecoverable(upstream))
	assert.True(t, IsRecoverable(fmt.Errorf("stage 3: %w", parse)))
	assert.False(t, IsRecoverable(errors.New("boom")))
	assert.False(t, IsRecoverable(nil))

	assert.ErrorIs(t, upstream, context.DeadlineExceeded)
	assert.Contains(t, upstream.Error(), "gemini/gemini-2.5-flash")
}

func TestDisabledClient(t *testing.T) {
	client := NewDisabledClient()

	_, err := client.GenerateJSON(context.Background(), Request{Prompt: "x", MaxTokens: 10})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, "", client.Model(TierStandard))
	assert.NoError(t, client.Close())
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewClient(ctx, ConfigFor(ProviderDisabled, ""), "")
	require.NoError(t, err)
	assert.IsType(t, &DisabledClient{}, client)

	_, err = NewClient(ctx, ConfigFor(ProviderAnthropic, ""), "")
	assert.Error(t, err, "anthropic requires a key")

	_, err = NewClient(ctx, ConfigFor(ProviderGemini, ""), "")
	assert.Error(t, err, "gemini requires a key")

	client, err = NewClient(ctx, ConfigFor(ProviderAnthropic, ""), "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", client.Model(TierLite))

	_, err = NewClient(ctx, &Config{Provider: "openai"}, "key")
	assert.Error(t, err)
}

func TestBuildSchemaPrompt(t *testing.T) {
	schema := ResponseSchema{
		Name:        "Test",
		Description: "Classify the input.",
		Fields: []SchemaField{
			{Name: "category", Required: true, Description: "label"},
			{Name: "confidence", Type: "number"},
		},
	}

	prompt := BuildSchemaPrompt(schema, "Office chairs")

	assert.Contains(t, prompt, "Classify the input.")
	assert.Contains(t, prompt, `"category": "string" (required) // label,`)
	assert.Contains(t, prompt, `"confidence": number`)
	assert.Contains(t, prompt, "Office chairs")
}
