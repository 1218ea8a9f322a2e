package llm

import "context"

// DisabledClient implements Client without a provider. Every call fails with
// ErrDisabled so callers run on their static fallbacks.
type DisabledClient struct{}

// NewDisabledClient creates a client for running without model access
func NewDisabledClient() *DisabledClient {
	return &DisabledClient{}
}

// GenerateJSON always fails upstream
func (c *DisabledClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	return "", &UpstreamError{Provider: ProviderDisabled, Err: ErrDisabled}
}

// Model returns an empty model name
func (c *DisabledClient) Model(tier ModelTier) string {
	return ""
}

// Close is a no-op
func (c *DisabledClient) Close() error {
	return nil
}
