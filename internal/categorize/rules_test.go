package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendscan/internal/entity"
)

func TestDefaultRulesLoad(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules)

	names := map[string]bool{}
	for _, r := range rules {
		names[r.Name] = true
	}
	assert.True(t, names["Food & Dining"])
	assert.True(t, names["Transportation"])
	assert.True(t, names["Other"])
}

func TestMatchKeywordConfidence(t *testing.T) {
	e := NewRuleEngine(nil)

	// "uber" is 4 chars: 0.5 + 4/20 = 0.70
	s := e.Match("uber ride home", "")
	require.NotNil(t, s)
	assert.Equal(t, "Transportation", s.Name)
	assert.InDelta(t, 0.70, s.Confidence, 1e-9)
	assert.Equal(t, entity.SourceRule, s.Source)
}

func TestMatchLongerKeywordWins(t *testing.T) {
	e := NewRuleEngine(nil)

	// "uber eats" (9 chars) beats "uber" (4 chars)
	s := e.Match("uber eats order", "")
	require.NotNil(t, s)
	assert.Equal(t, "Food & Dining", s.Name)
	assert.InDelta(t, 0.95, s.Confidence, 1e-9)
}

func TestMatchConfidenceCapped(t *testing.T) {
	e := NewRuleEngine(nil)

	// "subscription" is 12 chars: 0.5 + 0.6 would exceed the cap
	s := e.Match("annual subscription renewal", "")
	require.NotNil(t, s)
	assert.Equal(t, "Subscriptions", s.Name)
	assert.Equal(t, 0.95, s.Confidence)
}

func TestMatchUsesMerchantText(t *testing.T) {
	e := NewRuleEngine(nil)

	s := e.Match("", "STARBUCKS COFFEE")
	require.NotNil(t, s)
	assert.Equal(t, "Food & Dining", s.Name)
}

func TestMatchNothing(t *testing.T) {
	e := NewRuleEngine(nil)
	assert.Nil(t, e.Match("xyzzy plugh", ""))
}

func TestCategoryNamesInTableOrder(t *testing.T) {
	e := NewRuleEngine([]Rule{{Name: "B"}, {Name: "A"}})
	assert.Equal(t, []string{"B", "A"}, e.CategoryNames())
}
