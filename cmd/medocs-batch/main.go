package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/openai"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
	"github.com/joseph-ayodele/medical-docs/internal/export"
	"github.com/joseph-ayodele/medical-docs/internal/ingest"
	repo "github.com/joseph-ayodele/medical-docs/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process documents from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		query      = flag.String("query", "", "export only the records most similar to this query")
		limit      = flag.Int("limit", 0, "maximum records for --query (0 uses SEARCH_DEFAULT_LIMIT)")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "medical-records.xlsx")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: loading config: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, closeStore, err := repo.OpenIndexStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open index store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	processor, err := core.NewFromConfig(cfg, core.Models{Completer: client, Embedder: client}, store, logger)
	if err != nil {
		logger.Error("failed to build processor", "error", err)
		os.Exit(1)
	}
	if err := processor.Initialize(ctx); err != nil {
		logger.Error("processor initialization failed", "error", err)
		os.Exit(1)
	}

	pipeline := ingest.NewPipeline(processor, ingest.PipelineConfig{Index: *query != ""}, logger)
	logger.Info("starting batch", "dir", *dir)
	results, stats, err := pipeline.ProcessDirectory(ctx, *dir, *skipHidden)
	if err != nil {
		logger.Error("failed to process directory", "error", err)
		os.Exit(1)
	}
	logger.Info("batch complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	var xlsxBytes []byte
	if *query != "" {
		xlsxBytes, err = export.NewService(processor, logger).ExportSearchXLSX(ctx, *query, *limit)
	} else {
		records := make([]entity.StructuredRecord, 0, len(results))
		for _, r := range results {
			if r.Err == "" && !r.Deduplicated {
				records = append(records, r.Record)
			}
		}
		xlsxBytes, err = export.WriteRecordsXLSX(records)
	}
	if err != nil {
		logger.Error("failed to export records", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}
	logger.Info("export complete", "output", *out, "bytes", len(xlsxBytes))
}
