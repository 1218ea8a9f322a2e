package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// DecodeObject decodes a model response that must be a single JSON object.
// Every failure is reported as a *ParseError.
func DecodeObject(text string, v any) error {
	cleaned := CleanJSONBlock(text)
	if !strings.HasPrefix(cleaned, "{") {
		return &ParseError{Raw: text, Err: eris.New("response is not a JSON object")}
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return &ParseError{Raw: text, Err: eris.Wrap(err, "decode response")}
	}
	return nil
}
