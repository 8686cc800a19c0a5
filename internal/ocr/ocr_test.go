package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error

	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return f.stdout, f.stderr, f.err
}

func testExtractor(r Runner, available bool, cfg Config) *Extractor {
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
		cfg.Timeout = time.Second
	}
	return &Extractor{cfg: cfg, runner: r, available: available, logger: slog.Default()}
}

func TestNewExtractorMissingBinary(t *testing.T) {
	e := NewExtractor(Config{Tesseract: "definitely-not-a-real-binary-xyz"}, nil)
	assert.False(t, e.Available())
	assert.Equal(t, FallbackReceiptText, e.Extract(context.Background(), "any.png"))
}

func TestExtractReturnsEngineOutput(t *testing.T) {
	r := &fakeRunner{stdout: []byte("HELLO STORE\nCoffee 5.00\n")}
	e := testExtractor(r, true, Config{})

	got := e.Extract(context.Background(), "/tmp/receipt.png")
	assert.Equal(t, "HELLO STORE\nCoffee 5.00\n", got)
	assert.Equal(t, "tesseract", r.name)
}

func TestExtractPassesEngineArgs(t *testing.T) {
	r := &fakeRunner{stdout: []byte("x")}
	e := testExtractor(r, true, Config{Language: "eng+deu", TessdataDir: "/opt/tessdata"})

	e.Extract(context.Background(), "/tmp/receipt.png")
	require.NotEmpty(t, r.args)
	assert.Equal(t, "/tmp/receipt.png", r.args[0])
	assert.Equal(t, "stdout", r.args[1])
	assert.Contains(t, r.args, "-l")
	assert.Contains(t, r.args, "eng+deu")
	assert.Contains(t, r.args, "--psm")
	assert.Contains(t, r.args, "6")
	assert.Contains(t, r.args, "--tessdata-dir")
	assert.Contains(t, r.args, "/opt/tessdata")
}

func TestExtractRunnerFailureFallsBack(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("boom")}
	e := testExtractor(r, true, Config{})

	got := e.Extract(context.Background(), "/tmp/receipt.png")
	assert.Equal(t, FallbackReceiptText, got)
}

func TestFallbackTextIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, FallbackReceiptText)
}
