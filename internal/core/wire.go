package core

import (
	"log/slog"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/classify"
	"github.com/joseph-ayodele/medical-docs/internal/core/fields"
	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr"
	"github.com/joseph-ayodele/medical-docs/internal/core/summary"
)

// Models bundles the language model ports. The OpenAI client implements both.
type Models struct {
	Completer llm.Completer
	Embedder  llm.Embedder
}

// NewFromConfig assembles the full pipeline over store. The processor still needs
// Initialize (or its first call) before it is Ready.
func NewFromConfig(cfg *common.Config, models Models, store index.Store, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	classifier := classify.New(models.Completer, classify.Config{
		Timeout:       cfg.LLM.Timeout,
		MaxInputChars: cfg.LLM.MaxInputChars,
	}, logger)

	summarizer := summary.New(models.Completer, summary.Config{
		Temperature:   cfg.LLM.SummaryTemperature,
		MaxTokens:     cfg.LLM.SummaryMaxTokens,
		Timeout:       cfg.LLM.Timeout,
		MaxInputChars: cfg.LLM.MaxInputChars,
	}, logger)

	extractor, err := fields.NewExtractor(models.Completer, classifier, summarizer, fields.Config{
		Timeout:              cfg.LLM.Timeout,
		MaxTokens:            cfg.LLM.ExtractionMaxTokens,
		MaxInputChars:        cfg.LLM.MaxInputChars,
		RepairAttempts:       cfg.LLM.RepairAttempts,
		StrictClassification: cfg.Processor.StrictClassification,
	}, logger)
	if err != nil {
		return nil, err
	}

	var idx index.EmbeddingIndex
	if models.Embedder != nil {
		idx = index.New(models.Embedder, store, index.Config{
			EmbeddingTimeout: cfg.Index.EmbeddingTimeout,
			DefaultLimit:     cfg.Index.DefaultLimit,
		}, logger)
	}

	return NewProcessor(Config{InitTimeout: cfg.LLM.Timeout}, Deps{
		LLM:    models.Completer,
		Text:   ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger),
		Fields: extractor,
		Index:  idx,
	}, logger)
}
