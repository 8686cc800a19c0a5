// Package server exposes the receipt pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spendscan/internal/async"
	"spendscan/internal/categorize"
	"spendscan/internal/export"
	"spendscan/internal/repository"
)

type Config struct {
	Addr      string
	UploadDir string
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	http   *http.Server
}

// New wires the router. The queue owns pipeline execution; handlers only
// enqueue and read.
func New(
	cfg Config,
	docs repository.DocumentRepository,
	cats repository.CategoryRepository,
	txs repository.TransactionRepository,
	resolver *categorize.Resolver,
	queue async.Queue,
	exporter *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &receiptHandler{
		docs:      docs,
		cats:      cats,
		txs:       txs,
		resolver:  resolver,
		queue:     queue,
		exporter:  exporter,
		uploadDir: cfg.UploadDir,
		logger:    logger,
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/receipts", h.Upload)
		v1.GET("/receipts", h.List)
		v1.GET("/receipts/:id", h.Get)
		v1.POST("/receipts/:id/reprocess", h.Reprocess)
		v1.POST("/receipts/:id/transaction", h.CreateTransaction)
		v1.GET("/categories", h.ListCategories)
		v1.GET("/export", h.Export)
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
