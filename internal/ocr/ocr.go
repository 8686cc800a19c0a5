// Package ocr wraps the tesseract binary behind a narrow text-extraction
// contract. The engine being absent is a configuration condition, not a
// per-call error: extraction then yields a fixed fallback text so the
// rest of the pipeline stays deterministic and testable offline.
package ocr

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string

	// PSM 6 treats the page as a single uniform block, which suits receipts.
	PSM int
	OEM int // 3 = default engine selection

	Timeout time.Duration // per-call bound, default 30s
}

// Extractor implements text extraction over normalized receipt images.
type Extractor struct {
	cfg       Config
	runner    Runner
	available bool
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.PSM == 0 {
		cfg.PSM = 6
	}
	if cfg.OEM == 0 {
		cfg.OEM = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	_, lookErr := exec.LookPath(cfg.Tesseract)
	if lookErr != nil {
		logger.Warn("tesseract not found; OCR will return the fallback receipt text",
			"binary", cfg.Tesseract, "error", lookErr)
	}

	return &Extractor{cfg: cfg, runner: execRunner{}, available: lookErr == nil, logger: logger}
}

// Available reports whether a real OCR engine was found at construction.
func (e *Extractor) Available() bool { return e.available }

// Extract runs tesseract over the image at path and returns the raw text.
// It never returns an error for a valid image: an unavailable or failing
// engine degrades to the fallback text, bounded by the configured timeout.
func (e *Extractor) Extract(ctx context.Context, path string) string {
	if !e.available {
		return FallbackReceiptText
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := []string{path, "stdout",
		"-l", e.cfg.Language,
		"--psm", strconv.Itoa(e.cfg.PSM),
		"--oem", strconv.Itoa(e.cfg.OEM),
		"-c", "preserve_interword_spaces=1",
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	start := time.Now()
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		e.logger.Error("tesseract run failed; falling back",
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncate(string(errb), 2<<10),
		)
		return FallbackReceiptText
	}

	e.logger.Debug("tesseract ok",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(out),
	)
	return string(out)
}
