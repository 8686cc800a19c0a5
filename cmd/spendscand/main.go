package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendscan/internal/async"
	"spendscan/internal/categorize"
	"spendscan/internal/common"
	"spendscan/internal/export"
	"spendscan/internal/ocr"
	"spendscan/internal/pipeline"
	"spendscan/internal/repository"
	"spendscan/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		logger.Error("failed to create upload directory", "dir", cfg.Server.UploadDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(pool, logger)
	cats := repository.NewCategoryRepository(pool, logger)
	txs := repository.NewTransactionRepository(pool, logger)

	rules := categorize.NewRuleEngine(nil)
	if err := cats.SeedDefaults(ctx, rules.Rules()); err != nil {
		logger.Error("failed to seed default categories", "error", err)
		os.Exit(1)
	}

	var classifier categorize.Classifier
	if cfg.Classify.APIKey != "" {
		gc, err := categorize.NewGeminiClassifier(ctx, categorize.GeminiConfig{
			APIKey:      cfg.Classify.APIKey,
			Model:       cfg.Classify.Model,
			Timeout:     cfg.Classify.Timeout,
			Temperature: cfg.Classify.Temperature,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize classifier", "error", err)
			os.Exit(1)
		}
		defer gc.Close()
		classifier = gc
	} else {
		logger.Warn("GEMINI_API_KEY not set, external classification disabled")
	}

	resolver := categorize.NewResolver(rules, classifier, cats, logger)

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		TessdataDir: cfg.OCR.TessdataDir,
		Language:    cfg.OCR.Language,
		Timeout:     cfg.OCR.Timeout,
	}, logger)

	proc := pipeline.NewProcessor(docs, extractor, resolver, logger)
	queue := async.NewPipelineQueue(proc, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	exporter := export.NewService(docs, logger)

	srv := server.New(server.Config{
		Addr:      cfg.Server.Addr,
		UploadDir: cfg.Server.UploadDir,
	}, docs, cats, txs, resolver, queue, exporter, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
