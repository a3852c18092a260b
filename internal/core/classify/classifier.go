package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
)

type Config struct {
	Timeout       time.Duration // per completion; 0 = caller's deadline only
	MaxInputChars int
}

// Classifier assigns a coarse document type to extracted text.
type Classifier struct {
	llm    llm.Completer
	cfg    Config
	logger *slog.Logger
}

func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: completer, cfg: cfg, logger: logger}
}

// Classify asks the model for exactly one label. Labels outside the record type
// enumeration are clamped to constants.Other. Completion failures return common.ErrClassification.
func (c *Classifier) Classify(ctx context.Context, text string) (constants.RecordType, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	out, err := c.llm.Complete(ctx, llm.CompletionRequest{
		Operation:   llm.OpClassify,
		System:      llm.ClassificationSystemPrompt(),
		User:        llm.ClassificationUserPrompt(text, c.cfg.MaxInputChars),
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		c.logger.Error("classify.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.ClassificationError("classification completion", err)
	}

	raw := strings.ToLower(strings.TrimSpace(out.Content))
	label, ok := constants.Canonicalize(raw)
	if !ok {
		c.logger.Warn("classify.unknown_label", "req_id", rid, "raw", truncateLabel(raw), "clamped_to", label)
	}
	c.logger.Info("classify.ok", "req_id", rid, "label", label, "elapsed_ms", time.Since(start).Milliseconds())
	return label, nil
}

func truncateLabel(s string) string {
	if len(s) > 64 {
		return s[:64]
	}
	return s
}
