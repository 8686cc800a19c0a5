package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini-backed classifier.
type GeminiConfig struct {
	APIKey      string
	Model       string        // default "gemini-2.0-flash"
	Timeout     time.Duration // per-call bound, default 20s
	Temperature float32
	MaxTokens   int32 // default 150; replies are tiny JSON objects
}

// GeminiClassifier implements Classifier over the Gemini API.
type GeminiClassifier struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiClassifier dials the Gemini API. Callers should treat a
// construction error as "classifier not configured" and run without one.
func NewGeminiClassifier(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxTokens)

	logger.Info("gemini classifier initialized", "model", cfg.Model)
	return &GeminiClassifier{client: client, model: model, timeout: cfg.Timeout, logger: logger}, nil
}

// Close releases the underlying API client.
func (g *GeminiClassifier) Close() error {
	return g.client.Close()
}

// Classify asks the model for a {category, confidence, reasoning} reply.
func (g *GeminiClassifier) Classify(ctx context.Context, description, merchant string, amount float64, categories []string) (*Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildClassifyPrompt(description, merchant, amount, categories)))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("gemini: unexpected part type %T", resp.Candidates[0].Content.Parts[0])
	}

	s, err := parseClassifierReply(string(text))
	if err != nil {
		return nil, err
	}

	g.logger.Info("classify.external.ok",
		"category", s.Name,
		"confidence", s.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

func buildClassifyPrompt(description, merchant string, amount float64, categories []string) string {
	if merchant == "" {
		merchant = "Unknown"
	}
	var b strings.Builder
	b.WriteString("Categorize this financial transaction into one of the given categories.\n\n")
	b.WriteString("Transaction Details:\n")
	fmt.Fprintf(&b, "- Description: %s\n", description)
	fmt.Fprintf(&b, "- Merchant: %s\n", merchant)
	fmt.Fprintf(&b, "- Amount: %.2f\n\n", amount)
	fmt.Fprintf(&b, "Available Categories: %s\n\n", strings.Join(categories, ", "))
	b.WriteString("Respond with JSON only (no markdown, no code blocks):\n")
	b.WriteString(`{"category": "Category Name", "confidence": 0.95, "reasoning": "Brief explanation"}`)
	return b.String()
}
