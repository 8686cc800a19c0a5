package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendscan/internal/categorize"
	"spendscan/internal/entity"
)

// CategoryRepository persists categories. Lookup methods return (nil, nil)
// on a miss; an uncategorized transaction is not an error. Implements
// categorize.CategoryLookup.
type CategoryRepository interface {
	List(ctx context.Context, userID *uuid.UUID) ([]*entity.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	FindByNameForUser(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error)
	FindGlobalByName(ctx context.Context, name string) (*entity.Category, error)
	FindByNameToken(ctx context.Context, token string) (*entity.Category, error)
	SeedDefaults(ctx context.Context, rules []categorize.Rule) error
}

type categoryRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *slog.Logger) CategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryRepository{db: db, logger: logger}
}

const categoryColumns = `id, user_id, name, icon, color, is_income, keywords, created_at`

// List returns global categories plus the user's own when userID is set.
func (r *categoryRepository) List(ctx context.Context, userID *uuid.UUID) ([]*entity.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []*entity.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	return r.findOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

func (r *categoryRepository) FindByNameForUser(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error) {
	return r.findOne(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = $1 AND lower(name) = lower($2)
		LIMIT 1`, userID, name)
}

func (r *categoryRepository) FindGlobalByName(ctx context.Context, name string) (*entity.Category, error) {
	return r.findOne(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id IS NULL AND lower(name) = lower($1)
		LIMIT 1`, name)
}

func (r *categoryRepository) FindByNameToken(ctx context.Context, token string) (*entity.Category, error) {
	return r.findOne(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY user_id NULLS LAST, name
		LIMIT 1`, token)
}

// SeedDefaults upserts the global category set from the canonical rule
// table. Existing rows are refreshed in place so the asset stays the one
// source of truth.
func (r *categoryRepository) SeedDefaults(ctx context.Context, rules []categorize.Rule) error {
	for _, rule := range rules {
		keywords, err := json.Marshal(rule.Keywords)
		if err != nil {
			return fmt.Errorf("encode keywords for %q: %w", rule.Name, err)
		}
		_, err = r.db.Exec(ctx, `
			INSERT INTO categories (user_id, name, icon, color, is_income, keywords)
			VALUES (NULL, $1, $2, $3, $4, $5::jsonb)
			ON CONFLICT (name) WHERE user_id IS NULL
			DO UPDATE SET icon = EXCLUDED.icon, color = EXCLUDED.color,
			              is_income = EXCLUDED.is_income, keywords = EXCLUDED.keywords`,
			rule.Name, rule.Icon, rule.Color, rule.IsIncome, string(keywords))
		if err != nil {
			return fmt.Errorf("seed category %q: %w", rule.Name, err)
		}
	}
	r.logger.Info("seeded default categories", "count", len(rules))
	return nil
}

func (r *categoryRepository) findOne(ctx context.Context, sql string, args ...any) (*entity.Category, error) {
	cat, err := scanCategory(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return cat, nil
}

func scanCategory(row rowScanner) (*entity.Category, error) {
	var cat entity.Category
	err := row.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Icon, &cat.Color,
		&cat.IsIncome, &cat.Keywords, &cat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}
