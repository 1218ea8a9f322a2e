package llm

import (
	"errors"
	"fmt"
)

// ErrDisabled is the cause reported by the disabled client.
var ErrDisabled = errors.New("llm: provider disabled")

// UpstreamError reports a failed or timed out model call, or a response
// without usable content.
type UpstreamError struct {
	Provider Provider
	Model    string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("llm upstream error (%s): %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("llm upstream error (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError reports a model response that is not valid structured data of
// the expected shape.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is an upstream or parse failure, the two
// failures callers replace with fallback output.
func IsRecoverable(err error) bool {
	var upstream *UpstreamError
	var parse *ParseError
	return errors.As(err, &upstream) || errors.As(err, &parse)
}
