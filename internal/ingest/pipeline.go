package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

type PipelineConfig struct {
	Index bool // index each processed record under its original text
}

// Pipeline processes files from disk and optionally indexes the results. Files
// whose content hash was already handled in this process are skipped.
type Pipeline struct {
	proc   Processor
	cfg    PipelineConfig
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> first path
}

func NewPipeline(proc Processor, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{proc: proc, cfg: cfg, logger: logger, seen: map[string]string{}}
}

// Handle processes one file. The returned result carries the record on success.
func (p *Pipeline) Handle(ctx context.Context, path string) (FileResult, error) {
	start := time.Now()
	ctx, rid := common.EnsureRequestID(ctx)
	out := FileResult{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs

	mimeType := constants.MimeForPath(abs)
	if !AllowedExt(filepath.Ext(abs)) || mimeType == "" {
		return out, common.UnsupportedFormatError(filepath.Ext(abs))
	}

	sum, err := hashFile(abs)
	if err != nil {
		p.logger.Error("ingest.hash.failed", "req_id", rid, "path", abs, "error", err)
		return out, err
	}
	out.HashHex = sum

	if first, dup := p.claim(sum, abs); dup {
		p.logger.Info("ingest.duplicate", "req_id", rid, "path", abs, "first_path", first)
		out.Deduplicated = true
		return out, nil
	}

	rec, err := p.proc.ProcessDocument(ctx, entity.Document{
		Path:         abs,
		MimeType:     mimeType,
		OriginalName: filepath.Base(abs),
	})
	if err != nil {
		p.release(sum)
		p.logger.Error("ingest.process.failed", "req_id", rid, "path", abs, "error", err)
		return out, err
	}
	out.Record = rec

	if p.cfg.Index {
		id, err := p.proc.IndexDocument(ctx, rec.OriginalText, rec)
		if err != nil {
			p.release(sum)
			p.logger.Error("ingest.index.failed", "req_id", rid, "path", abs, "error", err)
			return out, err
		}
		out.IndexID = id
	}

	p.logger.Info("ingest.file.ok",
		"req_id", rid,
		"path", abs,
		"record_type", rec.RecordType,
		"indexed", out.IndexID != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// claim records hash as handled and reports whether another path already had it.
func (p *Pipeline) claim(hash, path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if first, ok := p.seen[hash]; ok {
		return first, true
	}
	p.seen[hash] = path
	return "", false
}

// release forgets a hash so a failed file can be retried.
func (p *Pipeline) release(hash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, hash)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
