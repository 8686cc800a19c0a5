// Package categorize assigns categories to transactions with a two-stage
// strategy: a deterministic keyword rule engine first, an external
// semantic classifier as fallback when the rules are not confident.
package categorize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"spendscan/internal/entity"
)

// categories.json is the single canonical rule/seed table. Both the rule
// engine and the database seeder load from it.
//
//go:embed categories.json
var defaultRulesJSON []byte

// Rule is one row of the keyword-to-category table.
type Rule struct {
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Color    string   `json:"color"`
	IsIncome bool     `json:"is_income"`
	Keywords []string `json:"keywords"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() []Rule {
	var rules []Rule
	if err := json.Unmarshal(defaultRulesJSON, &rules); err != nil {
		// embedded asset; a parse failure is a build defect
		panic(fmt.Sprintf("categorize: bad embedded categories.json: %v", err))
	}
	return rules
}

// Rule-engine scoring: a matched keyword scores len(keyword)/20, so longer
// keywords count as more specific. Confidence is 0.5 + score, capped.
const (
	keywordScoreDivisor = 20.0
	baseConfidence      = 0.5
	maxRuleConfidence   = 0.95
)

// Suggestion is an optional categorization produced by one strategy.
type Suggestion struct {
	Name       string
	Confidence float64
	Reasoning  string
	Source     entity.SuggestionSource
}

// RuleEngine scores keyword substring matches over an immutable rule table.
type RuleEngine struct {
	rules []Rule
}

// NewRuleEngine builds an engine over the given table; nil means the
// embedded default table.
func NewRuleEngine(rules []Rule) *RuleEngine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RuleEngine{rules: rules}
}

// Rules returns the engine's rule table, in table order.
func (e *RuleEngine) Rules() []Rule { return e.rules }

// CategoryNames lists the table's category names in table order.
func (e *RuleEngine) CategoryNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Match scans every keyword of every rule against the lowercased
// description+merchant text and keeps the best-scoring match; ties keep
// the first encountered. Returns nil when nothing matched.
func (e *RuleEngine) Match(description, merchant string) *Suggestion {
	text := strings.ToLower(description + " " + merchant)

	var bestName string
	bestScore := 0.0
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			score := float64(len(kw)) / keywordScoreDivisor
			if score > bestScore {
				bestScore = score
				bestName = rule.Name
			}
		}
	}

	if bestName == "" {
		return nil
	}
	return &Suggestion{
		Name:       bestName,
		Confidence: min(baseConfidence+bestScore, maxRuleConfidence),
		Source:     entity.SourceRule,
	}
}
