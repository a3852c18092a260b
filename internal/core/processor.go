package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// TextExtractor turns an uploaded document into text.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.Document) (ocr.ExtractionResult, error)
}

// FieldExtractor turns text into a fully-defaulted record.
type FieldExtractor interface {
	ExtractStructured(ctx context.Context, text string) (entity.StructuredRecord, error)
}

// Deps are the collaborators the processor coordinates.
type Deps struct {
	LLM    llm.Completer // smoke-tested by Initialize
	Text   TextExtractor
	Fields FieldExtractor
	Index  index.EmbeddingIndex // nil disables indexing; searches return nothing
}

type Config struct {
	InitTimeout time.Duration // bound on the smoke-test completion
}

// Processor is the single entry point for document processing and search.
// It is Uninitialized until the first successful smoke test; a failed smoke
// test leaves it Failed for the life of the process.
type Processor struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	initMu sync.Mutex // serializes smoke tests

	mu      sync.Mutex // guards state and initErr
	state   constants.ProcessorState
	initErr error
}

func NewProcessor(cfg Config, deps Deps, logger *slog.Logger) (*Processor, error) {
	if deps.LLM == nil || deps.Text == nil || deps.Fields == nil {
		return nil, errors.New("processor: LLM, Text and Fields are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		state:  constants.ProcessorUninitialized,
	}, nil
}

// State reports the current lifecycle state.
func (p *Processor) State() constants.ProcessorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Initialize runs the smoke-test completion once. Concurrent callers wait for the
// first one. Cancellation of the caller's context leaves the state unchanged.
func (p *Processor) Initialize(ctx context.Context) error {
	if done, err := p.settled(); done {
		return err
	}
	p.initMu.Lock()
	defer p.initMu.Unlock()
	if done, err := p.settled(); done {
		return err
	}

	start := time.Now()
	pingCtx := ctx
	if p.cfg.InitTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.cfg.InitTimeout)
		defer cancel()
	}

	_, err := p.deps.LLM.Complete(pingCtx, llm.PingRequest())
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Warn("processor.init.canceled", "error", ctx.Err())
			return ctx.Err()
		}
		p.setState(constants.ProcessorFailed, err)
		p.logger.Error("processor.init.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return common.ProcessorUnavailableError(err)
	}

	p.setState(constants.ProcessorReady, nil)
	p.logger.Info("processor.init.ok", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// settled reports whether initialization already finished, and its outcome.
func (p *Processor) settled() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case constants.ProcessorReady:
		return true, nil
	case constants.ProcessorFailed:
		return true, common.ProcessorUnavailableError(p.initErr)
	}
	return false, nil
}

func (p *Processor) setState(state constants.ProcessorState, initErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.initErr = initErr
}

// ProcessDocument extracts text from doc and returns its structured record. Any
// component failure aborts the call; no partial record is returned.
func (p *Processor) ProcessDocument(ctx context.Context, doc entity.Document) (entity.StructuredRecord, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	if err := p.Initialize(ctx); err != nil {
		return entity.StructuredRecord{}, err
	}
	start := time.Now()

	text, err := p.deps.Text.Extract(ctx, doc)
	if err != nil {
		p.logger.Error("processor.extract.failed", "req_id", rid, "mime", doc.MimeType, "error", err)
		return entity.StructuredRecord{}, err
	}
	p.logger.Debug("processor.extract.ok",
		"req_id", rid,
		"method", text.Method,
		"pages", text.Pages,
		"text_len", len(text.Text),
	)

	rec, err := p.deps.Fields.ExtractStructured(ctx, text.Text)
	if err != nil {
		p.logger.Error("processor.fields.failed", "req_id", rid, "error", err)
		return entity.StructuredRecord{}, err
	}
	rec.FilePath = doc.Path

	p.logger.Info("processor.process.ok",
		"req_id", rid,
		"record_type", rec.RecordType,
		"medications", len(rec.Prescription),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// IndexDocument makes record searchable under text and returns the entry id.
func (p *Processor) IndexDocument(ctx context.Context, text string, record entity.StructuredRecord) (string, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	if err := p.Initialize(ctx); err != nil {
		return "", err
	}
	if p.deps.Index == nil {
		return "", common.EmbeddingError("index document", errors.New("no similarity index configured"))
	}
	return p.deps.Index.Index(ctx, text, record)
}

// SearchMatches returns scored hits, most similar first.
func (p *Processor) SearchMatches(ctx context.Context, query string, limit int) ([]index.Match, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, common.InvalidInputError("search query is empty")
	}
	if p.deps.Index == nil {
		return []index.Match{}, nil
	}
	return p.deps.Index.Search(ctx, query, limit)
}

// SearchSimilarDocuments returns at most limit previously indexed records, most similar first.
// limit <= 0 uses the index default.
func (p *Processor) SearchSimilarDocuments(ctx context.Context, query string, limit int) ([]entity.StructuredRecord, error) {
	matches, err := p.SearchMatches(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return index.Records(matches), nil
}

// IndexSize reports the number of indexed entries, 0 without an index.
func (p *Processor) IndexSize(ctx context.Context) (int, error) {
	if p.deps.Index == nil {
		return 0, nil
	}
	return p.deps.Index.Len(ctx)
}
