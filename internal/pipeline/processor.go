// Package pipeline drives a document through the extraction state
// machine: pending -> processing -> {completed, failed}. Reprocess re-enters
// processing from any state, including terminal ones.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendscan/constants"
	"spendscan/internal/categorize"
	"spendscan/internal/entity"
	"spendscan/internal/parse"
	"spendscan/internal/preprocess"
	"spendscan/internal/repository"
)

// ErrAlreadyProcessing is returned when a second pipeline run is requested
// for a document whose previous run has not finished yet.
var ErrAlreadyProcessing = errors.New("document is already being processed")

// TextExtractor is the OCR boundary. It never fails for a valid image;
// an unavailable engine yields deterministic fallback text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) string
}

// Suggester produces an optional category suggestion for a transaction.
type Suggester interface {
	Suggest(ctx context.Context, description, merchant string, amount float64) *categorize.Suggestion
}

// Processor coordinates normalize, OCR, parse, score and categorize for
// one document at a time per document ID. Distinct documents may run in
// parallel freely; nothing below the processor holds state across runs.
type Processor struct {
	logger    *slog.Logger
	docs      repository.DocumentRepository
	extractor TextExtractor
	suggester Suggester // nil when categorization is not configured

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewProcessor(docs repository.DocumentRepository, extractor TextExtractor, suggester Suggester, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		docs:      docs,
		extractor: extractor,
		suggester: suggester,
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// Process runs the full pipeline for a document. It is also the reprocess
// operation: any prior result is superseded, and prior line items are
// replaced, never duplicated. All failures end up as data on the document
// (status failed + message); the returned error exists for caller logging
// only and mirrors what was recorded.
func (p *Processor) Process(ctx context.Context, docID uuid.UUID) error {
	if !p.acquire(docID) {
		return ErrAlreadyProcessing
	}
	defer p.release(docID)

	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if err := p.docs.MarkProcessing(ctx, docID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	return p.runGuarded(ctx, doc)
}

// runGuarded converts panics from any stage into a failed document; the
// pipeline boundary never lets one escape.
func (p *Processor) runGuarded(ctx context.Context, doc *entity.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			p.logger.Error("pipeline.panic", "document_id", doc.ID, "panic", r)
			p.failDocument(doc.ID, msg)
			err = errors.New(msg)
		}
	}()
	return p.run(ctx, doc)
}

func (p *Processor) run(ctx context.Context, doc *entity.Document) error {
	start := time.Now()

	data, err := os.ReadFile(doc.ImagePath)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Sprintf("read image: %v", err))
	}

	img, err := preprocess.Decode(data)
	if err != nil {
		return p.fail(ctx, doc.ID, err.Error())
	}
	normalized := preprocess.Normalize(img)

	path, cleanup, err := preprocess.WriteTempPNG(normalized)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Sprintf("stage normalized image: %v", err))
	}
	defer cleanup()

	rawText := p.extractor.Extract(ctx, path)
	if strings.TrimSpace(rawText) == "" {
		p.logger.Warn("pipeline.ocr.empty", "document_id", doc.ID)
		return p.fail(ctx, doc.ID, constants.ErrNoText)
	}

	fields := parse.ParseReceipt(rawText)
	confidence := parse.Score(fields)
	result := BuildResult(rawText, fields, confidence)

	suggested := ""
	if p.suggester != nil {
		// merchant doubles as the description; it is all we know yet
		amount := 0.0
		if result.TotalAmount != nil {
			amount = *result.TotalAmount
		}
		if s := p.suggester.Suggest(ctx, fields.MerchantName, fields.MerchantName, amount); s != nil {
			suggested = s.Name
		}
	}

	if err := p.docs.CompleteExtraction(ctx, doc.ID, result, suggested); err != nil {
		return fmt.Errorf("persist extraction: %w", err)
	}

	p.logger.Info("pipeline.completed",
		"document_id", doc.ID,
		"merchant", fields.MerchantName,
		"items", len(fields.Items),
		"confidence", confidence,
		"suggested_category", suggested,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail records a terminal failure on the document. The error returned is
// for logging; the document itself is the source of truth.
func (p *Processor) fail(ctx context.Context, docID uuid.UUID, msg string) error {
	if err := p.docs.FailExtraction(ctx, docID, msg); err != nil {
		p.logger.Error("pipeline.fail_write", "document_id", docID, "error", err)
		return fmt.Errorf("record failure %q: %w", msg, err)
	}
	return errors.New(msg)
}

// failDocument is the panic path: the request context may be poisoned, so
// use a short independent one.
func (p *Processor) failDocument(docID uuid.UUID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.docs.FailExtraction(ctx, docID, msg); err != nil {
		p.logger.Error("pipeline.fail_write", "document_id", docID, "error", err)
	}
}

func (p *Processor) acquire(docID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[docID]; busy {
		return false
	}
	p.inflight[docID] = struct{}{}
	return true
}

func (p *Processor) release(docID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, docID)
}

// BuildResult assembles an extraction result from parsed fields.
func BuildResult(rawText string, fields parse.Fields, confidence float64) entity.ExtractionResult {
	items := make([]entity.LineItem, len(fields.Items))
	for i, it := range fields.Items {
		items[i] = entity.LineItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.Price,
			TotalPrice: it.Price * it.Quantity,
		}
	}
	return entity.ExtractionResult{
		Success:      true,
		RawText:      rawText,
		MerchantName: fields.MerchantName,
		Items:        items,
		Subtotal:     fields.Subtotal,
		TaxAmount:    fields.TaxAmount,
		TotalAmount:  fields.TotalAmount,
		ReceiptDate:  fields.ReceiptDate,
		Confidence:   confidence,
	}
}
