package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

const indexTable = "indexed_documents"

var indexColumns = []string{"id", "text", "embedding", "record", "indexed_at"}

var indexDDL = map[string]string{
	dialect.SQLite: `CREATE TABLE IF NOT EXISTS indexed_documents (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	record TEXT NOT NULL,
	indexed_at BIGINT NOT NULL
)`,
	dialect.Postgres: `CREATE TABLE IF NOT EXISTS indexed_documents (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	record TEXT NOT NULL,
	indexed_at BIGINT NOT NULL
)`,
}

// SQLIndexStore keeps index entries in a SQL table so they survive restarts.
// Embeddings and records are stored as JSON text; seq preserves insertion order.
type SQLIndexStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

var _ index.Store = (*SQLIndexStore)(nil)

// NewSQLIndexStore creates the table if needed. dialectName is dialect.SQLite or dialect.Postgres.
func NewSQLIndexStore(ctx context.Context, db *sql.DB, dialectName string, logger *slog.Logger) (*SQLIndexStore, error) {
	ddl, ok := indexDDL[dialectName]
	if !ok {
		return nil, fmt.Errorf("unsupported index dialect %q", dialectName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		logger.Error("failed to create index table", "dialect", dialectName, "error", err)
		return nil, fmt.Errorf("create index table: %w", err)
	}
	return &SQLIndexStore{db: db, dialect: dialectName, logger: logger}, nil
}

func (s *SQLIndexStore) Append(ctx context.Context, doc entity.IndexedDocument) error {
	emb, err := json.Marshal(doc.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	rec, err := json.Marshal(doc.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query, args := entsql.Dialect(s.dialect).
		Insert(indexTable).
		Columns(indexColumns...).
		Values(doc.ID, doc.Text, string(emb), string(rec), doc.IndexedAt.UnixNano()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("failed to insert indexed document", "id", doc.ID, "error", err)
		return err
	}
	return nil
}

func (s *SQLIndexStore) All(ctx context.Context) ([]entity.IndexedDocument, error) {
	b := entsql.Dialect(s.dialect)
	t := b.Table(indexTable)
	cols := make([]string, len(indexColumns))
	for i, c := range indexColumns {
		cols[i] = t.C(c)
	}
	query, args := b.Select(cols...).From(t).OrderBy(entsql.Asc(t.C("seq"))).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list indexed documents", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.IndexedDocument
	for rows.Next() {
		var (
			doc       entity.IndexedDocument
			emb, rec  string
			indexedAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &emb, &rec, &indexedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(emb), &doc.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", doc.ID, err)
		}
		if err := json.Unmarshal([]byte(rec), &doc.Record); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", doc.ID, err)
		}
		doc.IndexedAt = time.Unix(0, indexedAt).UTC()
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQLIndexStore) Len(ctx context.Context) (int, error) {
	b := entsql.Dialect(s.dialect)
	query, args := b.Select(entsql.Count("*")).From(b.Table(indexTable)).Query()
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLIndexStore) Reset(ctx context.Context) error {
	query, args := entsql.Dialect(s.dialect).Delete(indexTable).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("failed to reset index table", "error", err)
		return err
	}
	return nil
}
