package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendscan/internal/entity"
)

// TransactionRepository persists ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) (*entity.Transaction, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Transaction, error)
}

type transactionRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *slog.Logger) TransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &transactionRepository{db: db, logger: logger}
}

const transactionColumns = `id, user_id, document_id, category_id, amount, description, merchant, tx_date, notes, created_at`

func (r *transactionRepository) Create(ctx context.Context, tx *entity.Transaction) (*entity.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, document_id, category_id, amount, description, merchant, tx_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		tx.UserID, tx.DocumentID, tx.CategoryID, tx.Amount, tx.Description, tx.Merchant, tx.TxDate, tx.Notes)

	created, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

func (r *transactionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE document_id = $1 ORDER BY created_at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entity.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var tx entity.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.DocumentID, &tx.CategoryID,
		&tx.Amount, &tx.Description, &tx.Merchant, &tx.TxDate, &tx.Notes, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
