package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"spendscan/constants"
	"spendscan/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentsXLSX returns an XLSX workbook (as bytes) of completed
// documents for the given user. A nil userID exports everything.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, userID *uuid.UUID) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.List(ctx, userID, 10000, 0)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Receipts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Receipt Date",
		"Merchant",
		"Subtotal",
		"Tax",
		"Total",
		"Confidence",
		"Suggested Category",
		"Image Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	exported := 0
	for _, d := range docs {
		if d.Status != constants.StatusCompleted {
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		date := ""
		if d.ReceiptDate != nil {
			date = *d.ReceiptDate
		}
		write(1, date)

		merchant := d.MerchantName
		if merchant == "" {
			merchant = "—"
		}
		write(2, merchant)

		write(3, floatCell(d.Subtotal))
		write(4, floatCell(d.TaxAmount))
		write(5, floatCell(d.TotalAmount))
		write(6, fmt.Sprintf("%.2f", d.Confidence))
		write(7, d.SuggestedCategory)
		write(8, d.ImagePath)

		row++
		exported++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // merchant
	_ = f.SetColWidth(sheet, "C", "E", 12) // amounts
	_ = f.SetColWidth(sheet, "G", "G", 22) // category
	_ = f.SetColWidth(sheet, "H", "H", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", exported,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
