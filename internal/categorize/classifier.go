package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"spendscan/internal/entity"
)

// Classifier is the external semantic classifier boundary. A nil result
// with a non-nil error means the engine failed; callers treat that as
// "no suggestion", never as a fatal condition.
type Classifier interface {
	Classify(ctx context.Context, description, merchant string, amount float64, categories []string) (*Suggestion, error)
}

// classifierReply is the structured payload the external engine returns.
type classifierReply struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// replySchema validates payload shape before we trust it. Fields are
// optional (the engine may omit them); wrong types fail validation.
const replySchema = `{
	"type": "object",
	"properties": {
		"category":   {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning":  {"type": "string"}
	}
}`

var compiledReplySchema = mustCompileSchema(replySchema)

func mustCompileSchema(src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("reply.json", bytes.NewReader([]byte(src))); err != nil {
		panic(err)
	}
	return c.MustCompile("reply.json")
}

// parseClassifierReply strips incidental markdown fences around the
// payload, validates it, and fills defaults for omitted fields
// (category "Other", confidence 0.7).
func parseClassifierReply(raw string) (*Suggestion, error) {
	payload := stripFences(strings.TrimSpace(raw))

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("classifier reply is not JSON: %w", err)
	}
	if err := compiledReplySchema.Validate(v); err != nil {
		return nil, fmt.Errorf("classifier reply does not match schema: %w", err)
	}

	var reply classifierReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("unmarshal classifier reply: %w", err)
	}

	if reply.Category == "" {
		reply.Category = "Other"
	}
	if reply.Confidence == 0 {
		reply.Confidence = 0.7
	}

	return &Suggestion{
		Name:       reply.Category,
		Confidence: reply.Confidence,
		Reasoning:  reply.Reasoning,
		Source:     entity.SourceExternal,
	}, nil
}

// stripFences removes a wrapping ``` or ```json fence if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}
