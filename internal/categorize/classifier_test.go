package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendscan/internal/entity"
)

func TestParseClassifierReply(t *testing.T) {
	s, err := parseClassifierReply(`{"category": "Travel", "confidence": 0.9, "reasoning": "hotel stay"}`)
	require.NoError(t, err)
	assert.Equal(t, "Travel", s.Name)
	assert.Equal(t, 0.9, s.Confidence)
	assert.Equal(t, "hotel stay", s.Reasoning)
	assert.Equal(t, entity.SourceExternal, s.Source)
}

func TestParseClassifierReplyStripsFences(t *testing.T) {
	fenced := "```json\n{\"category\": \"Groceries\", \"confidence\": 0.8}\n```"
	s, err := parseClassifierReply(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", s.Name)

	bare := "```\n{\"category\": \"Groceries\"}\n```"
	s, err = parseClassifierReply(bare)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", s.Name)
}

func TestParseClassifierReplyDefaults(t *testing.T) {
	s, err := parseClassifierReply(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "Other", s.Name)
	assert.Equal(t, 0.7, s.Confidence)
}

func TestParseClassifierReplyRejectsNonJSON(t *testing.T) {
	_, err := parseClassifierReply("I think this is Travel.")
	assert.Error(t, err)
}

func TestParseClassifierReplyRejectsWrongTypes(t *testing.T) {
	_, err := parseClassifierReply(`{"category": 42}`)
	assert.Error(t, err)

	_, err = parseClassifierReply(`{"confidence": 1.5}`)
	assert.Error(t, err)
}
