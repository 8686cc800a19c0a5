// scanreceipt runs the extraction pipeline over a single image without a
// database or server: decode, normalize, OCR, parse, score, categorize,
// and print the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"spendscan/internal/categorize"
	"spendscan/internal/common"
	"spendscan/internal/entity"
	"spendscan/internal/ocr"
	"spendscan/internal/parse"
	"spendscan/internal/pipeline"
	"spendscan/internal/preprocess"
)

func main() {
	rawOut := flag.Bool("raw", false, "also print the raw OCR text")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scanreceipt [-raw] [-v] <image>")
		os.Exit(2)
	}
	imagePath := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		fatal("read image: %v", err)
	}
	img, err := preprocess.Decode(data)
	if err != nil {
		fatal("%v", err)
	}
	normalized := preprocess.Normalize(img)

	tmpPath, cleanup, err := preprocess.WriteTempPNG(normalized)
	if err != nil {
		fatal("stage normalized image: %v", err)
	}
	defer cleanup()

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		TessdataDir: cfg.OCR.TessdataDir,
		Language:    cfg.OCR.Language,
		Timeout:     cfg.OCR.Timeout,
	}, logger)

	ctx := context.Background()
	rawText := extractor.Extract(ctx, tmpPath)
	if strings.TrimSpace(rawText) == "" {
		fatal("no text could be extracted")
	}

	fields := parse.ParseReceipt(rawText)
	confidence := parse.Score(fields)
	result := pipeline.BuildResult(rawText, fields, confidence)

	resolver := categorize.NewResolver(categorize.NewRuleEngine(nil), nil, nil, logger)
	suggested := ""
	amount := 0.0
	if result.TotalAmount != nil {
		amount = *result.TotalAmount
	}
	if s := resolver.Suggest(ctx, fields.MerchantName, fields.MerchantName, amount); s != nil {
		suggested = s.Name
	}

	out := struct {
		entity.ExtractionResult
		SuggestedCategory string `json:"suggested_category,omitempty"`
	}{ExtractionResult: result, SuggestedCategory: suggested}
	if !*rawOut {
		out.RawText = ""
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal("encode result: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "scanreceipt: "+format+"\n", args...)
	os.Exit(1)
}
