package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendscan/constants"
	"spendscan/internal/common"
	"spendscan/internal/entity"
)

// DocumentRepository persists documents and their line items. Status and
// extracted fields always change together in one transaction so readers
// never observe a completed document with partial fields.
type DocumentRepository interface {
	Create(ctx context.Context, userID *uuid.UUID, imagePath string) (*entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*entity.Document, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	CompleteExtraction(ctx context.Context, id uuid.UUID, res entity.ExtractionResult, suggestedCategory string) error
	FailExtraction(ctx context.Context, id uuid.UUID, errMsg string) error
}

type documentRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

const documentColumns = `
	id, user_id, image_path, status, error_message, raw_text, merchant_name,
	subtotal, tax_amount, total_amount, receipt_date, confidence,
	suggested_category, created_at, processed_at`

func (r *documentRepository) Create(ctx context.Context, userID *uuid.UUID, imagePath string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO documents (user_id, image_path, status)
		VALUES ($1, $2, $3)
		RETURNING `+documentColumns,
		userID, imagePath, constants.StatusPending)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	doc.LineItems = []entity.LineItem{}
	return doc, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.LineItems = items
	return doc, nil
}

func (r *documentRepository) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE ($1::uuid IS NULL OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.LineItems = []entity.LineItem{}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = ''
		WHERE id = $1`,
		id, constants.StatusProcessing)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// CompleteExtraction writes the completed status, the extracted fields and
// the replacement line items atomically. Prior line items are deleted in
// the same transaction: reprocessing must never duplicate financial rows.
func (r *documentRepository) CompleteExtraction(ctx context.Context, id uuid.UUID, res entity.ExtractionResult, suggestedCategory string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var receiptDate *time.Time
	if res.ReceiptDate != nil {
		if t, perr := time.Parse("2006-01-02", *res.ReceiptDate); perr == nil {
			receiptDate = &t
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = '', raw_text = $3, merchant_name = $4,
		    subtotal = $5, tax_amount = $6, total_amount = $7, receipt_date = $8,
		    confidence = $9, suggested_category = $10, processed_at = now()
		WHERE id = $1`,
		id, constants.StatusCompleted, res.RawText, res.MerchantName,
		res.Subtotal, res.TaxAmount, res.TotalAmount, receiptDate,
		res.Confidence, suggestedCategory)
	if err != nil {
		return fmt.Errorf("complete extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}
	for _, item := range res.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO line_items (document_id, name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5)`,
			id, item.Name, item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FailExtraction writes the failed status and clears any line items from a
// previous attempt, atomically.
func (r *documentRepository) FailExtraction(ctx context.Context, id uuid.UUID, errMsg string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = $3, processed_at = now()
		WHERE id = $1`,
		id, constants.StatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("fail extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *documentRepository) listItems(ctx context.Context, docID uuid.UUID) ([]entity.LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, name, quantity, unit_price, total_price
		FROM line_items WHERE document_id = $1 ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	items := []entity.LineItem{}
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.Name, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc         entity.Document
		receiptDate *time.Time
	)
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.ImagePath, &doc.Status, &doc.ErrorMessage,
		&doc.RawText, &doc.MerchantName, &doc.Subtotal, &doc.TaxAmount,
		&doc.TotalAmount, &receiptDate, &doc.Confidence, &doc.SuggestedCategory,
		&doc.CreatedAt, &doc.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	if receiptDate != nil {
		iso := receiptDate.Format("2006-01-02")
		doc.ReceiptDate = &iso
	}
	return &doc, nil
}
