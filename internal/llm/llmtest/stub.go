// Package llmtest provides scripted llm.Client implementations for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/stretchr/testify/mock"
)

// StubModel is the model name reported by Stub.
const StubModel = "stub-model"

// ErrStubUnavailable is the cause of failures returned by Failing stubs.
var ErrStubUnavailable = errors.New("stub: upstream unavailable")

// Stub is a deterministic llm.Client driven by a respond function.
type Stub struct {
	mu      sync.Mutex
	respond func(req llm.Request) (string, error)
	calls   []llm.Request
}

// New creates a stub that answers every request with respond.
func New(respond func(req llm.Request) (string, error)) *Stub {
	return &Stub{respond: respond}
}

// Failing creates a stub whose every call fails upstream.
func Failing() *Stub {
	return New(func(llm.Request) (string, error) {
		return "", &llm.UpstreamError{Provider: "stub", Model: StubModel, Err: ErrStubUnavailable}
	})
}

// Fixed creates a stub that answers every request with text.
func Fixed(text string) *Stub {
	return New(func(llm.Request) (string, error) {
		return text, nil
	})
}

// Sequence creates a stub that answers the n-th call with texts[n] and fails
// upstream once the texts are exhausted. An empty string fails upstream too.
func Sequence(texts ...string) *Stub {
	var n int
	return New(func(llm.Request) (string, error) {
		i := n
		n++
		if i >= len(texts) || texts[i] == "" {
			return "", &llm.UpstreamError{Provider: "stub", Model: StubModel, Err: ErrStubUnavailable}
		}
		return texts[i], nil
	})
}

// GenerateJSON records the request and returns the scripted answer.
func (s *Stub) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := ctx.Err(); err != nil {
		return "", &llm.UpstreamError{Provider: "stub", Model: StubModel, Err: err}
	}
	return s.respond(req)
}

// Calls returns a copy of the recorded requests.
func (s *Stub) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}

// Model returns StubModel.
func (s *Stub) Model(llm.ModelTier) string {
	return StubModel
}

// Close is a no-op.
func (s *Stub) Close() error {
	return nil
}

// MockClient is a testify mock of llm.Client.
type MockClient struct {
	mock.Mock
}

// GenerateJSON mocks the model call.
func (m *MockClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Model mocks the model lookup.
func (m *MockClient) Model(tier llm.ModelTier) string {
	args := m.Called(tier)
	return args.String(0)
}

// Close mocks releasing the client.
func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
