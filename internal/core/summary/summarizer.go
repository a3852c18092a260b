package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
)

type Config struct {
	Temperature   float32 // low, default 0.3
	MaxTokens     int     // default 150
	Timeout       time.Duration
	MaxInputChars int
}

// Generator writes a short natural-language summary of a document.
type Generator struct {
	llm    llm.Completer
	cfg    Config
	logger *slog.Logger
}

func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	return &Generator{llm: completer, cfg: cfg, logger: logger}
}

// Summarize makes one completion call. Failures and blank output return common.ErrSummary.
func (g *Generator) Summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	out, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Operation:   llm.OpSummarize,
		System:      llm.SummarySystemPrompt(),
		User:        llm.SummaryUserPrompt(text, g.cfg.MaxInputChars),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		g.logger.Warn("summary.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.SummaryError("summary completion", err)
	}

	s := strings.TrimSpace(out.Content)
	if s == "" {
		return "", common.SummaryError("empty summary", errors.New("model returned no text"))
	}
	g.logger.Info("summary.ok", "req_id", rid, "summary_len", len(s), "elapsed_ms", time.Since(start).Milliseconds())
	return s, nil
}
