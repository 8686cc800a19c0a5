package categorize

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"spendscan/internal/entity"
)

// RuleConfidenceGate: a rule match above this confidence is accepted
// outright and the external classifier is not consulted.
const RuleConfidenceGate = 0.80

// CategoryLookup is the persistence boundary the resolver needs. A miss
// is (nil, nil), not an error.
type CategoryLookup interface {
	// FindByNameForUser does a case-insensitive exact match within the
	// user's own categories.
	FindByNameForUser(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error)
	// FindGlobalByName does a case-insensitive exact match within global
	// (unowned) categories.
	FindGlobalByName(ctx context.Context, name string) (*entity.Category, error)
	// FindByNameToken does a case-insensitive substring match on name,
	// searched without scope restriction.
	FindByNameToken(ctx context.Context, token string) (*entity.Category, error)
}

type strategy func(ctx context.Context, rule *Suggestion, description, merchant string, amount float64) *Suggestion

// Resolver runs the ordered suggestion strategy chain and maps suggested
// names onto persisted categories.
type Resolver struct {
	rules      *RuleEngine
	classifier Classifier // nil when no external engine is configured
	lookup     CategoryLookup
	logger     *slog.Logger
}

func NewResolver(rules *RuleEngine, classifier Classifier, lookup CategoryLookup, logger *slog.Logger) *Resolver {
	if rules == nil {
		rules = NewRuleEngine(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{rules: rules, classifier: classifier, lookup: lookup, logger: logger}
}

// Suggest runs the strategy chain: confident rule match, then external
// classifier, then any rule match. Nil means no suggestion.
func (r *Resolver) Suggest(ctx context.Context, description, merchant string, amount float64) *Suggestion {
	rule := r.rules.Match(description, merchant)

	chain := []strategy{
		r.acceptConfidentRule,
		r.classifyExternal,
		r.acceptAnyRule,
	}
	for _, s := range chain {
		if got := s(ctx, rule, description, merchant, amount); got != nil {
			return got
		}
	}
	return nil
}

func (r *Resolver) acceptConfidentRule(_ context.Context, rule *Suggestion, _, _ string, _ float64) *Suggestion {
	if rule != nil && rule.Confidence > RuleConfidenceGate {
		r.logger.Info("categorize.rule.accepted", "category", rule.Name, "confidence", rule.Confidence)
		return rule
	}
	return nil
}

func (r *Resolver) classifyExternal(ctx context.Context, _ *Suggestion, description, merchant string, amount float64) *Suggestion {
	if r.classifier == nil {
		return nil
	}
	s, err := r.classifier.Classify(ctx, description, merchant, amount, r.rules.CategoryNames())
	if err != nil {
		// classifier unavailable is never fatal; the chain moves on
		r.logger.Warn("categorize.external.failed", "error", err)
		return nil
	}
	return s
}

func (r *Resolver) acceptAnyRule(_ context.Context, rule *Suggestion, _, _ string, _ float64) *Suggestion {
	return rule
}

// Resolve maps a suggested name to a persisted category: user-scoped
// exact match, then global exact match, then substring match on the first
// token of the name. Nil means the record stays uncategorized.
func (r *Resolver) Resolve(ctx context.Context, userID *uuid.UUID, suggestedName string) (*entity.Category, error) {
	if suggestedName == "" || r.lookup == nil {
		return nil, nil
	}

	if userID != nil {
		cat, err := r.lookup.FindByNameForUser(ctx, *userID, suggestedName)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			return cat, nil
		}
	}

	cat, err := r.lookup.FindGlobalByName(ctx, suggestedName)
	if err != nil {
		return nil, err
	}
	if cat != nil {
		return cat, nil
	}

	if fields := strings.Fields(suggestedName); len(fields) > 0 {
		cat, err = r.lookup.FindByNameToken(ctx, fields[0])
		if err != nil {
			return nil, err
		}
		if cat != nil {
			return cat, nil
		}
	}

	return nil, nil
}

// Categorize runs the full two-stage flow and resolves the winner against
// persisted categories.
func (r *Resolver) Categorize(ctx context.Context, userID *uuid.UUID, description, merchant string, amount float64) (*entity.CategorizationResult, error) {
	s := r.Suggest(ctx, description, merchant, amount)
	if s == nil {
		return &entity.CategorizationResult{Source: entity.SourceNone}, nil
	}

	cat, err := r.Resolve(ctx, userID, s.Name)
	if err != nil {
		return nil, err
	}
	return &entity.CategorizationResult{
		SuggestedName: s.Name,
		Confidence:    s.Confidence,
		Source:        s.Source,
		Category:      cat,
	}, nil
}
