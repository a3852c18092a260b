package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/openai"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Runs the full pipeline on one file repeatedly to compare model output across runs.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: runllm <file> [times]")
		os.Exit(2)
	}
	path, err := filepath.Abs(os.Args[1])
	if err != nil {
		logger.Error("invalid path", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}
	times := 3
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	processor, err := core.NewFromConfig(cfg, core.Models{Completer: client}, nil, logger)
	if err != nil {
		logger.Error("build processor", "error", err)
		os.Exit(1)
	}

	doc := entity.Document{Path: path, MimeType: constants.MimeForPath(path)}
	base := filepath.Base(path)
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "basename", base)

		rec, err := processor.ProcessDocument(runCtx, doc)
		cancelRun()

		if err != nil {
			logger.Error("pipeline.run.error", "iter", i, "err", err)
		} else {
			logger.Info("pipeline.run.ok",
				"iter", i,
				"record_type", rec.RecordType,
				"patient", rec.PatientName,
				"medications", len(rec.Prescription),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "path", path, "times", times, "model", client.Model())
}
