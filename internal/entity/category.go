package entity

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a persisted expense/income category for data
// transfer between layers. UserID nil means a global (default) category.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Color     string     `json:"color"`
	IsIncome  bool       `json:"is_income"`
	Keywords  []string   `json:"keywords"`
	CreatedAt time.Time  `json:"created_at"`
}

// SuggestionSource tells where a category suggestion came from.
type SuggestionSource string

const (
	SourceRule     SuggestionSource = "rule"
	SourceExternal SuggestionSource = "external"
	SourceNone     SuggestionSource = "none"
)

// CategorizationResult is the outcome of categorizing one transaction.
// A nil Category means no persisted match was found; that is not an error.
type CategorizationResult struct {
	SuggestedName string           `json:"suggested_name"`
	Confidence    float64          `json:"confidence"`
	Source        SuggestionSource `json:"source"`
	Category      *Category        `json:"category,omitempty"`
}
