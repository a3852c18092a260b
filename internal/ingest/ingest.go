package ingest

import (
	"context"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Processor is the part of the document processor ingestion drives.
type Processor interface {
	ProcessDocument(ctx context.Context, doc entity.Document) (entity.StructuredRecord, error)
	IndexDocument(ctx context.Context, text string, record entity.StructuredRecord) (string, error)
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	HashHex      string
	IndexID      string
	Deduplicated bool
	Record       entity.StructuredRecord
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
