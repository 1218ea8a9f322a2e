// Package textcheck cleans and spell-checks free text entered by users.
package textcheck

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultContext is reported when the caller gives none.
const DefaultContext = "general"

var strictPolicy = bluemonday.StrictPolicy()

// common accounting misspellings, applied in order
var corrections = []struct {
	wrong   string
	correct string
}{
	{"expences", "expenses"},
	{"recievable", "receivable"},
	{"payabel", "payable"},
	{"depriciation", "depreciation"},
	{"assests", "assets"},
	{"liabilites", "liabilities"},
	{"reveue", "revenue"},
	{"inventry", "inventory"},
	{"seperate", "separate"},
	{"occured", "occurred"},
	{"begining", "beginning"},
	{"recieve", "receive"},
}

// Result is the outcome of checking one piece of text.
type Result struct {
	Status        string   `json:"status"`
	IsValid       bool     `json:"is_valid"`
	OriginalText  string   `json:"original_text"`
	CorrectedText string   `json:"corrected_text"`
	Suggestions   []string `json:"suggestions"`
	Context       string   `json:"context"`
	Confidence    float64  `json:"confidence"`
}

// maxSanitizePasses bounds how many layers of entity encoding are peeled.
const maxSanitizePasses = 5

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize strips markup and non-printable characters from s. Entity encoded
// markup is decoded and stripped as well, so the result never carries a tag.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)

	// The policy output is escaped text. Once decoding it and sanitizing
	// again changes nothing, decoding it cannot produce markup.
	stable := false
	for i := 0; i < maxSanitizePasses; i++ {
		clean := strictPolicy.Sanitize(html.UnescapeString(s))
		if clean == s {
			stable = true
			break
		}
		s = clean
	}

	out := html.UnescapeString(s)
	if !stable {
		out = angleBrackets.Replace(out)
	}
	return strings.TrimSpace(out)
}

// Check corrects known misspellings in text. The corrected text is lower
// cased before correction and title cased afterwards.
func Check(text, context string) Result {
	if strings.TrimSpace(context) == "" {
		context = DefaultContext
	}

	corrected := strings.ToLower(Sanitize(text))
	suggestions := []string{}
	for _, c := range corrections {
		if strings.Contains(corrected, c.wrong) {
			corrected = strings.ReplaceAll(corrected, c.wrong, c.correct)
			suggestions = append(suggestions, fmt.Sprintf("'%s' → '%s'", c.wrong, c.correct))
		}
	}

	valid := len(suggestions) == 0
	confidence := 0.8
	if valid {
		confidence = 0.95
	}

	return Result{
		Status:        "success",
		IsValid:       valid,
		OriginalText:  text,
		CorrectedText: cases.Title(language.English).String(corrected),
		Suggestions:   suggestions,
		Context:       context,
		Confidence:    confidence,
	}
}
