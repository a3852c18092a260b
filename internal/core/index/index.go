package index

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// DefaultLimit is used when Search is called with limit <= 0 and no limit is configured.
const DefaultLimit = 5

// EmbeddingIndex is the similarity index port used by the processor.
type EmbeddingIndex interface {
	Index(ctx context.Context, text string, record entity.StructuredRecord) (string, error)
	Search(ctx context.Context, query string, limit int) ([]Match, error)
	Len(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Match is one search hit.
type Match struct {
	Document entity.IndexedDocument
	Score    float64
}

type Config struct {
	EmbeddingTimeout time.Duration
	DefaultLimit     int
}

// Service embeds text and ranks stored entries by cosine similarity.
type Service struct {
	embedder llm.Embedder
	store    Store
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

var _ EmbeddingIndex = (*Service)(nil)

// New builds an index over store; a nil store means a fresh MemoryStore.
func New(embedder llm.Embedder, store Store, cfg Config, logger *slog.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Service{embedder: embedder, store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Index embeds text and stores it with record. Every call creates a new entry.
func (s *Service) Index(ctx context.Context, text string, record entity.StructuredRecord) (string, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	if strings.TrimSpace(text) == "" {
		return "", common.InvalidInputError("index text is empty")
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		s.logger.Error("index.embed.failed", "req_id", rid, "error", err)
		return "", common.EmbeddingError("embed document", err)
	}

	doc := entity.IndexedDocument{
		ID:        uuid.NewString(),
		Text:      text,
		Embedding: vec,
		Record:    record,
		IndexedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, doc); err != nil {
		s.logger.Error("index.store.failed", "req_id", rid, "error", err)
		return "", storeError("append indexed document", err)
	}

	s.logger.Info("index.add.ok", "req_id", rid, "id", doc.ID, "dims", len(vec), "elapsed_ms", time.Since(start).Milliseconds())
	return doc.ID, nil
}

// Search returns at most limit entries ordered by descending similarity, ties broken
// by insertion order. An empty index returns no matches without calling the embedder.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	if strings.TrimSpace(query) == "" {
		return nil, common.InvalidInputError("search query is empty")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	docs, err := s.store.All(ctx)
	if err != nil {
		return nil, storeError("load indexed documents", err)
	}
	if len(docs) == 0 {
		s.logger.Info("index.search", "req_id", rid, "entries", 0, "results", 0)
		return []Match{}, nil
	}

	qvec, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Error("index.embed.failed", "req_id", rid, "error", err)
		return nil, common.EmbeddingError("embed query", err)
	}

	matches := make([]Match, len(docs))
	for i, d := range docs {
		matches[i] = Match{Document: d, Score: Cosine(qvec, d.Embedding)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Info("index.search",
		"req_id", rid,
		"entries", len(docs),
		"limit", limit,
		"results", len(matches),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return matches, nil
}

func (s *Service) Len(ctx context.Context) (int, error) {
	n, err := s.store.Len(ctx)
	if err != nil {
		return 0, storeError("count indexed documents", err)
	}
	return n, nil
}

// Reset drops every entry, for rebuilding the index from the record store.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return storeError("reset index", err)
	}
	s.logger.Info("index.reset", "req_id", common.RequestIDFromContext(ctx))
	return nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	if s.cfg.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EmbeddingTimeout)
		defer cancel()
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("empty embedding")
	}
	return vec, nil
}

func storeError(message string, cause error) error {
	return common.NewAppError(common.CodeDatabase, message, common.ErrDatabase).WithCause(cause)
}

// Records unwraps matches into their records, preserving order.
func Records(matches []Match) []entity.StructuredRecord {
	out := make([]entity.StructuredRecord, len(matches))
	for i, m := range matches {
		out[i] = m.Document.Record
	}
	return out
}
