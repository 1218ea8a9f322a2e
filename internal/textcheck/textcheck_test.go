package textcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name            string
		text            string
		context         string
		wantValid       bool
		wantCorrected   string
		wantSuggestions []string
		wantConfidence  float64
		wantContext     string
	}{
		{
			name:            "clean text",
			text:            "office supplies",
			context:         "transaction",
			wantValid:       true,
			wantCorrected:   "Office Supplies",
			wantSuggestions: []string{},
			wantConfidence:  0.95,
			wantContext:     "transaction",
		},
		{
			name:            "single misspelling",
			text:            "Accounts Recievable",
			wantCorrected:   "Accounts Receivable",
			wantSuggestions: []string{"'recievable' → 'receivable'"},
			wantConfidence:  0.8,
			wantContext:     DefaultContext,
		},
		{
			name:          "several misspellings",
			text:          "prepaid expences and depriciation",
			wantCorrected: "Prepaid Expenses And Depreciation",
			wantSuggestions: []string{
				"'expences' → 'expenses'",
				"'depriciation' → 'depreciation'",
			},
			wantConfidence: 0.8,
			wantContext:    DefaultContext,
		},
		{
			name:            "markup removed",
			text:            "<b>trade payabel</b>",
			wantCorrected:   "Trade Payable",
			wantSuggestions: []string{"'payabel' → 'payable'"},
			wantConfidence:  0.8,
			wantContext:     DefaultContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.text, tt.context)

			assert.Equal(t, "success", got.Status)
			assert.Equal(t, tt.wantValid, got.IsValid)
			assert.Equal(t, tt.text, got.OriginalText)
			assert.Equal(t, tt.wantCorrected, got.CorrectedText)
			assert.Equal(t, tt.wantSuggestions, got.Suggestions)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.Equal(t, tt.wantContext, got.Context)
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ampersand kept", "  Acme & Sons  ", "Acme & Sons"},
		{"script dropped", "<script>alert(1)</script>Vendor", "Vendor"},
		{"control character dropped", "O'Brien\x00 Ltd", "O'Brien Ltd"},
		{"newlines kept", "Line one\nLine two", "Line one\nLine two"},
		{"comparison kept", "1 < 2", "1 < 2"},
		{"encoded script dropped", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"encoded tag stripped", "&lt;b&gt;Acme&lt;/b&gt; Supplies", "Acme Supplies"},
		{"double encoded script dropped", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;Vendor", "Vendor"},
		{"encoded ampersand decoded", "Acme &amp; Sons", "Acme & Sons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "<script")
		})
	}

	assert.Equal(t, Sanitize("<script>alert(1)</script>"), Sanitize("&lt;script&gt;alert(1)&lt;/script&gt;"))
}
