package fields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Classifier labels text when the model left recordType empty.
type Classifier interface {
	Classify(ctx context.Context, text string) (constants.RecordType, error)
}

// Summarizer writes the record summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Config struct {
	Timeout              time.Duration // per completion
	MaxTokens            int           // default 2000
	MaxInputChars        int
	RepairAttempts       int  // 0 or 1
	StrictClassification bool // classifier failure aborts extraction
}

// Extractor turns document text into a fully-defaulted StructuredRecord.
type Extractor struct {
	llm        llm.Completer
	classifier Classifier
	summarizer Summarizer
	schema     *jsonschema.Schema
	system     string
	cfg        Config
	logger     *slog.Logger
}

// NewExtractor compiles the record schema once. classifier and summarizer may be nil.
func NewExtractor(completer llm.Completer, classifier Classifier, summarizer Summarizer, cfg Config, logger *slog.Logger) (*Extractor, error) {
	if completer == nil {
		return nil, errors.New("fields: completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.RepairAttempts < 0 {
		cfg.RepairAttempts = 0
	}
	if cfg.RepairAttempts > 1 {
		cfg.RepairAttempts = 1
	}
	schema, err := llm.CompileSchema(llm.BuildRecordJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	return &Extractor{
		llm:        completer,
		classifier: classifier,
		summarizer: summarizer,
		schema:     schema,
		system:     llm.ExtractionSystemPrompt(),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ExtractStructured prompts the model for the record fields, normalizes them and
// attaches a summary when the record has content. A summary failure leaves Summary empty.
func (e *Extractor) ExtractStructured(ctx context.Context, text string) (entity.StructuredRecord, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	raw, err := e.complete(ctx, llm.CompletionRequest{
		Operation:   llm.OpExtract,
		System:      e.system,
		User:        llm.ExtractionUserPrompt(text, e.cfg.MaxInputChars),
		Temperature: 0,
		MaxTokens:   e.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		e.logger.Error("fields.complete.failed", "req_id", rid, "error", err)
		return entity.StructuredRecord{}, common.CompletionError("extraction completion", err)
	}

	obj, err := e.parse(ctx, raw)
	if err != nil {
		e.logger.Error("fields.parse.failed", "req_id", rid, "error", err, "reply_len", len(raw))
		return entity.StructuredRecord{}, common.MalformedExtractionError("model reply is not a JSON object", err)
	}

	f, notes := Normalize(obj)
	if len(notes) > 0 {
		e.logger.Warn("fields.normalize.coerced", "req_id", rid, "fields", notes)
	}

	rt, err := e.resolveRecordType(ctx, f.RecordType, text)
	if err != nil {
		return entity.StructuredRecord{}, err
	}
	f.RecordType = string(rt)

	if err := e.validate(f); err != nil {
		e.logger.Error("fields.schema.failed", "req_id", rid, "error", err)
		return entity.StructuredRecord{}, common.MalformedExtractionError("record does not match schema", err)
	}

	rec := entity.StructuredRecord{
		PatientName:  f.PatientName,
		Date:         f.Date,
		DoctorName:   f.DoctorName,
		Diagnosis:    f.Diagnosis,
		Prescription: f.Prescription,
		Notes:        f.Notes,
		RecordType:   f.RecordType,
		DocumentType: f.RecordType,
		OriginalText: text,
	}

	if rec.HasContent() && e.summarizer != nil {
		s, err := e.summarizer.Summarize(ctx, text)
		if err != nil {
			e.logger.Warn("fields.summary.skipped", "req_id", rid, "error", err)
		} else {
			rec.Summary = s
		}
	}

	e.logger.Info("fields.extract.ok",
		"req_id", rid,
		"record_type", rec.RecordType,
		"medications", len(rec.Prescription),
		"has_summary", rec.Summary != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (e *Extractor) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	out, err := e.llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// parse decodes the reply, asking the model to repair it at most RepairAttempts times.
// A valid JSON value that is not an object is never repaired.
func (e *Extractor) parse(ctx context.Context, raw string) (map[string]any, error) {
	obj, err := llm.DecodeObject(llm.StripCodeFences(raw))
	for attempt := 0; err != nil && !errors.Is(err, llm.ErrNotObject) && attempt < e.cfg.RepairAttempts; attempt++ {
		e.logger.Warn("fields.repair.start", "req_id", common.RequestIDFromContext(ctx), "attempt", attempt+1, "error", err)
		repaired, cerr := e.complete(ctx, llm.CompletionRequest{
			Operation:   llm.OpRepair,
			System:      e.system,
			User:        llm.RepairUserPrompt(raw),
			Temperature: 0,
			MaxTokens:   e.cfg.MaxTokens,
			JSON:        true,
		})
		if cerr != nil {
			return nil, fmt.Errorf("repair: %w (original: %v)", cerr, err)
		}
		raw = repaired
		obj, err = llm.DecodeObject(llm.StripCodeFences(raw))
	}
	return obj, err
}

func (e *Extractor) resolveRecordType(ctx context.Context, label, text string) (constants.RecordType, error) {
	rid := common.RequestIDFromContext(ctx)
	if label != "" {
		rt, ok := constants.Canonicalize(label)
		if !ok {
			e.logger.Warn("fields.record_type.clamped", "req_id", rid, "raw", label, "clamped_to", rt)
		}
		return rt, nil
	}
	if e.classifier == nil {
		return constants.DefaultRecordType, nil
	}
	rt, err := e.classifier.Classify(ctx, text)
	if err != nil {
		if e.cfg.StrictClassification {
			return "", err
		}
		e.logger.Warn("fields.classify.defaulted", "req_id", rid, "error", err, "record_type", constants.Other)
		return constants.Other, nil
	}
	return rt, nil
}

func (e *Extractor) validate(f Fields) error {
	if f.Prescription == nil {
		f.Prescription = []entity.Medication{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return llm.ValidateJSON(e.schema, b)
}
