package categorize

import (
	_ "embed"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultRulesYAML []byte

// Rule maps description keywords to a ledger category.
type Rule struct {
	Category    string   `yaml:"category"`
	AccountCode string   `yaml:"account_code"`
	Keywords    []string `yaml:"keywords"`
}

// Rules is an ordered keyword rule set with a default category.
type Rules struct {
	Rules   []Rule `yaml:"rules"`
	Default Rule   `yaml:"default"`
}

// ParseRules reads a rule set from YAML.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrap(err, "categorize: parse rules")
	}
	if rules.Default.Category == "" || rules.Default.AccountCode == "" {
		return nil, eris.New("categorize: rules need a default category and account code")
	}
	for i, r := range rules.Rules {
		if r.Category == "" || r.AccountCode == "" || len(r.Keywords) == 0 {
			return nil, eris.Errorf("categorize: rule %d needs a category, account code and keywords", i+1)
		}
		for j, kw := range r.Keywords {
			rules.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &rules, nil
}

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return rules
}

// Match returns the first rule with a keyword that prefixes a word of
// description. The default rule is returned with false when none matches.
func (r *Rules) Match(description string) (Rule, bool) {
	words := strings.FieldsFunc(strings.ToLower(description), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	for _, rule := range r.Rules {
		for _, kw := range rule.Keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return rule, true
				}
			}
		}
	}
	return r.Default, false
}
