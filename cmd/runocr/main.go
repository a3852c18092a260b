package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path, err := filepath.Abs(os.Args[1])
	if err != nil {
		logger.Error("invalid path", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	extractor := ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)

	start := time.Now()
	res, err := extractor.Extract(ctx, entity.Document{
		Path:     path,
		MimeType: constants.MimeForPath(path),
	})
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"source_type", res.SourceType,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(res.Text)
}
