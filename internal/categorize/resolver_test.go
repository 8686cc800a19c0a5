package categorize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendscan/internal/entity"
)

type fakeClassifier struct {
	suggestion *Suggestion
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string, _ float64, _ []string) (*Suggestion, error) {
	f.calls++
	return f.suggestion, f.err
}

type fakeLookup struct {
	user   map[string]*entity.Category // keyed by userID/name
	global map[string]*entity.Category
	token  map[string]*entity.Category
}

func (f *fakeLookup) FindByNameForUser(_ context.Context, userID uuid.UUID, name string) (*entity.Category, error) {
	return f.user[userID.String()+"/"+strings.ToLower(name)], nil
}

func (f *fakeLookup) FindGlobalByName(_ context.Context, name string) (*entity.Category, error) {
	return f.global[strings.ToLower(name)], nil
}

func (f *fakeLookup) FindByNameToken(_ context.Context, token string) (*entity.Category, error) {
	return f.token[strings.ToLower(token)], nil
}

func TestSuggestConfidentRuleSkipsClassifier(t *testing.T) {
	cl := &fakeClassifier{suggestion: &Suggestion{Name: "Travel", Confidence: 0.99, Source: entity.SourceExternal}}
	r := NewResolver(nil, cl, nil, nil)

	// "starbucks" rule scores 0.95, above the gate
	s := r.Suggest(context.Background(), "starbucks latte", "", 5.0)
	require.NotNil(t, s)
	assert.Equal(t, "Food & Dining", s.Name)
	assert.Equal(t, entity.SourceRule, s.Source)
	assert.Equal(t, 0, cl.calls)
}

func TestSuggestConsultsClassifierBelowGate(t *testing.T) {
	cl := &fakeClassifier{suggestion: &Suggestion{Name: "Travel", Confidence: 0.9, Source: entity.SourceExternal}}
	r := NewResolver(nil, cl, nil, nil)

	// "uber" rule scores 0.70, at or below the gate
	s := r.Suggest(context.Background(), "uber ride", "", 12.0)
	require.NotNil(t, s)
	assert.Equal(t, "Travel", s.Name)
	assert.Equal(t, entity.SourceExternal, s.Source)
	assert.Equal(t, 1, cl.calls)
}

func TestSuggestClassifierFailureFallsBackToRule(t *testing.T) {
	cl := &fakeClassifier{err: errors.New("quota exceeded")}
	r := NewResolver(nil, cl, nil, nil)

	s := r.Suggest(context.Background(), "uber ride", "", 12.0)
	require.NotNil(t, s)
	assert.Equal(t, "Transportation", s.Name)
	assert.Equal(t, entity.SourceRule, s.Source)
	assert.Equal(t, 1, cl.calls)
}

func TestSuggestNoClassifierUsesAnyRule(t *testing.T) {
	r := NewResolver(nil, nil, nil, nil)

	s := r.Suggest(context.Background(), "uber ride", "", 12.0)
	require.NotNil(t, s)
	assert.Equal(t, "Transportation", s.Name)
}

func TestSuggestNothingMatches(t *testing.T) {
	r := NewResolver(nil, nil, nil, nil)
	assert.Nil(t, r.Suggest(context.Background(), "xyzzy", "", 1.0))
}

func TestResolveUserCategoryWins(t *testing.T) {
	userID := uuid.New()
	mine := &entity.Category{ID: uuid.New(), UserID: &userID, Name: "Travel"}
	global := &entity.Category{ID: uuid.New(), Name: "Travel"}

	lookup := &fakeLookup{
		user:   map[string]*entity.Category{userID.String() + "/travel": mine},
		global: map[string]*entity.Category{"travel": global},
	}
	r := NewResolver(nil, nil, lookup, nil)

	cat, err := r.Resolve(context.Background(), &userID, "Travel")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, mine.ID, cat.ID)
}

func TestResolveGlobalFallback(t *testing.T) {
	userID := uuid.New()
	global := &entity.Category{ID: uuid.New(), Name: "Travel"}

	lookup := &fakeLookup{global: map[string]*entity.Category{"travel": global}}
	r := NewResolver(nil, nil, lookup, nil)

	cat, err := r.Resolve(context.Background(), &userID, "Travel")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, global.ID, cat.ID)
}

func TestResolveTokenFallbackUsesFirstWord(t *testing.T) {
	food := &entity.Category{ID: uuid.New(), Name: "Food & Dining"}
	lookup := &fakeLookup{token: map[string]*entity.Category{"food": food}}
	r := NewResolver(nil, nil, lookup, nil)

	cat, err := r.Resolve(context.Background(), nil, "Food & Dining")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, food.ID, cat.ID)
}

func TestResolveEmptyNameOrMiss(t *testing.T) {
	r := NewResolver(nil, nil, &fakeLookup{}, nil)

	cat, err := r.Resolve(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Nil(t, cat)

	cat, err = r.Resolve(context.Background(), nil, "Nonexistent")
	require.NoError(t, err)
	assert.Nil(t, cat)
}

func TestCategorizeEndToEnd(t *testing.T) {
	global := &entity.Category{ID: uuid.New(), Name: "Transportation"}
	lookup := &fakeLookup{global: map[string]*entity.Category{"transportation": global}}
	r := NewResolver(nil, nil, lookup, nil)

	res, err := r.Categorize(context.Background(), nil, "uber ride", "", 12.0)
	require.NoError(t, err)
	assert.Equal(t, "Transportation", res.SuggestedName)
	assert.Equal(t, entity.SourceRule, res.Source)
	require.NotNil(t, res.Category)
	assert.Equal(t, global.ID, res.Category.ID)
}

func TestCategorizeNoSuggestion(t *testing.T) {
	r := NewResolver(nil, nil, &fakeLookup{}, nil)

	res, err := r.Categorize(context.Background(), nil, "xyzzy", "", 1.0)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceNone, res.Source)
	assert.Nil(t, res.Category)
}
