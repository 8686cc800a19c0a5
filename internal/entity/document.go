package entity

import (
	"time"

	"github.com/google/uuid"

	"spendscan/constants"
)

// Document represents an uploaded receipt image and its processing state
// for data transfer between layers.
type Document struct {
	ID                uuid.UUID                `json:"id"`
	UserID            *uuid.UUID               `json:"user_id,omitempty"`
	ImagePath         string                   `json:"image_path"`
	Status            constants.DocumentStatus `json:"status"`
	ErrorMessage      string                   `json:"error_message,omitempty"`
	RawText           string                   `json:"raw_text,omitempty"`
	MerchantName      string                   `json:"merchant_name,omitempty"`
	Subtotal          *float64                 `json:"subtotal,omitempty"`
	TaxAmount         *float64                 `json:"tax_amount,omitempty"`
	TotalAmount       *float64                 `json:"total_amount,omitempty"`
	ReceiptDate       *string                  `json:"receipt_date,omitempty"` // YYYY-MM-DD
	Confidence        float64                  `json:"confidence"`
	SuggestedCategory string                   `json:"suggested_category,omitempty"`
	LineItems         []LineItem               `json:"line_items"`
	CreatedAt         time.Time                `json:"created_at"`
	ProcessedAt       *time.Time               `json:"processed_at,omitempty"`
}

// LineItem is a single purchased item extracted from a receipt.
// Owned by the extraction attempt that produced it; replaced wholesale
// on reprocess.
type LineItem struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Name       string    `json:"name"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
}

// ExtractionResult is the outcome of one pipeline attempt over a document.
// Created once per attempt; a reprocess supersedes it, never merges.
type ExtractionResult struct {
	Success      bool       `json:"success"`
	RawText      string     `json:"raw_text"`
	MerchantName string     `json:"merchant_name"`
	Items        []LineItem `json:"items"`
	Subtotal     *float64   `json:"subtotal,omitempty"`
	TaxAmount    *float64   `json:"tax_amount,omitempty"`
	TotalAmount  *float64   `json:"total_amount,omitempty"`
	ReceiptDate  *string    `json:"receipt_date,omitempty"` // YYYY-MM-DD
	Confidence   float64    `json:"confidence"`
	Error        string     `json:"error,omitempty"`
}
