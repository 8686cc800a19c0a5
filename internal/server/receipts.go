package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spendscan/constants"
	"spendscan/internal/async"
	"spendscan/internal/categorize"
	"spendscan/internal/common"
	"spendscan/internal/entity"
	"spendscan/internal/export"
	"spendscan/internal/repository"
)

type receiptHandler struct {
	docs      repository.DocumentRepository
	cats      repository.CategoryRepository
	txs       repository.TransactionRepository
	resolver  *categorize.Resolver
	queue     async.Queue
	exporter  *export.Service
	uploadDir string
	logger    *slog.Logger
}

// Upload accepts a multipart receipt image, stores it, creates a pending
// document and enqueues it. Processing is asynchronous: 202 + the pending
// document.
func (h *receiptHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	ext := constants.NormalizeExt(filepath.Ext(file.Filename))
	if !constants.IsAllowedExt(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported image type %q", ext)})
		return
	}

	userID, ok := optionalUserID(c)
	if !ok {
		return
	}

	dest := filepath.Join(h.uploadDir, uuid.NewString()+"."+ext)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		h.logger.Error("upload.save_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	doc, err := h.docs.Create(c.Request.Context(), userID, dest)
	if err != nil {
		h.logger.Error("upload.create_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}

	_ = h.queue.Enqueue(c.Request.Context(), async.Job{DocumentID: doc.ID, SubmittedAt: time.Now()})
	c.JSON(http.StatusAccepted, doc)
}

func (h *receiptHandler) List(c *gin.Context) {
	userID, ok := optionalUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.docs.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("receipts.list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list receipts"})
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

func (h *receiptHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.docs.GetByID(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	if err != nil {
		h.logger.Error("receipts.get_failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load receipt"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Reprocess re-enqueues an existing document. Any prior result is
// superseded once the run completes.
func (h *receiptHandler) Reprocess(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.docs.GetByID(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	if err != nil {
		h.logger.Error("receipts.reprocess_load_failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load receipt"})
		return
	}

	_ = h.queue.Enqueue(c.Request.Context(), async.Job{DocumentID: doc.ID, SubmittedAt: time.Now()})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "id": doc.ID})
}

type createTransactionRequest struct {
	CategoryID  *uuid.UUID `json:"category_id"`
	Description string     `json:"description"`
	Notes       string     `json:"notes"`
	TxDate      string     `json:"tx_date"` // YYYY-MM-DD, optional
}

// CreateTransaction converts a completed document into a ledger
// transaction. The caller may override the category; otherwise the
// document's suggested category is resolved against persisted ones.
func (h *receiptHandler) CreateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req createTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
			return
		}
	}

	ctx := c.Request.Context()
	doc, err := h.docs.GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	if err != nil {
		h.logger.Error("transaction.load_failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load receipt"})
		return
	}
	if doc.Status != constants.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "receipt has not completed processing"})
		return
	}

	categoryID, err := h.pickCategory(c, doc, req.CategoryID)
	if err != nil {
		return // response already written
	}

	amount := 0.0
	if doc.TotalAmount != nil {
		amount = *doc.TotalAmount
	}

	description := req.Description
	if description == "" {
		merchant := doc.MerchantName
		if merchant == "" {
			merchant = "Unknown Merchant"
		}
		description = "Purchase at " + merchant
	}

	txDate := time.Now().UTC().Truncate(24 * time.Hour)
	switch {
	case req.TxDate != "":
		t, perr := time.Parse("2006-01-02", req.TxDate)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tx_date must be YYYY-MM-DD"})
			return
		}
		txDate = t
	case doc.ReceiptDate != nil:
		if t, perr := time.Parse("2006-01-02", *doc.ReceiptDate); perr == nil {
			txDate = t
		}
	}

	tx := &entity.Transaction{
		UserID:      doc.UserID,
		DocumentID:  &doc.ID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: description,
		Merchant:    doc.MerchantName,
		TxDate:      txDate,
		Notes:       req.Notes,
	}
	created, err := h.txs.Create(ctx, tx)
	if err != nil {
		h.logger.Error("transaction.create_failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create transaction"})
		return
	}

	h.logger.Info("transaction.created", "transaction_id", created.ID, "document_id", doc.ID, "amount", amount)
	c.JSON(http.StatusCreated, created)
}

// pickCategory validates an explicit override or resolves the suggestion.
// Writes the error response itself so callers just bail on error.
func (h *receiptHandler) pickCategory(c *gin.Context, doc *entity.Document, override *uuid.UUID) (*uuid.UUID, error) {
	ctx := c.Request.Context()

	if override != nil {
		cat, err := h.cats.GetByID(ctx, *override)
		if err != nil {
			h.logger.Error("transaction.category_lookup_failed", "category_id", override, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up category"})
			return nil, err
		}
		if cat == nil {
			err := common.ErrNotFound
			c.JSON(http.StatusBadRequest, gin.H{"error": "category_id does not exist"})
			return nil, err
		}
		return &cat.ID, nil
	}

	cat, err := h.resolver.Resolve(ctx, doc.UserID, doc.SuggestedCategory)
	if err != nil {
		h.logger.Error("transaction.resolve_failed", "document_id", doc.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve category"})
		return nil, err
	}
	if cat == nil {
		return nil, nil // stays uncategorized
	}
	return &cat.ID, nil
}

func (h *receiptHandler) ListCategories(c *gin.Context) {
	userID, ok := optionalUserID(c)
	if !ok {
		return
	}

	cats, err := h.cats.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("categories.list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	if cats == nil {
		cats = []*entity.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

func (h *receiptHandler) Export(c *gin.Context) {
	userID, ok := optionalUserID(c)
	if !ok {
		return
	}

	data, err := h.exporter.ExportDocumentsXLSX(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("export.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := "receipts-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
		return uuid.Nil, false
	}
	return id, true
}

// optionalUserID reads user_id from form or query. Absent means unscoped.
func optionalUserID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.PostForm("user_id")
	if raw == "" {
		raw = c.Query("user_id")
	}
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return nil, false
	}
	return &id, true
}
