package entity

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a ledger record, typically created from a completed document.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	DocumentID  *uuid.UUID `json:"document_id,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Merchant    string     `json:"merchant,omitempty"`
	TxDate      time.Time  `json:"tx_date"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
