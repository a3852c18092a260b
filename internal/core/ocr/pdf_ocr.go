package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// pdfToOCR rasterizes every page with pdftoppm and runs tesseract on each image.
func (e *Extractor) pdfToOCR(ctx context.Context, path string, logger *slog.Logger) (string, int, []string, error) {
	tmpDir, err := os.MkdirTemp("", "medocs-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("ocr.pdf.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, logger, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPageImages(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, nil, errors.New("pdftoppm produced no images")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, err := e.tesseractOCR(ctx, img, logger)
		if err != nil {
			if ctx.Err() != nil {
				return "", len(matches), warns, ctx.Err()
			}
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Normalize(txt))
	}
	return b.String(), len(matches), warns, nil
}

// sortPageImages orders pdftoppm outputs (page-1.png, page-2.png, ...) by page number.
func sortPageImages(paths []string) {
	pageNum := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		i := strings.LastIndexByte(base, '-')
		n, _ := strconv.Atoi(base[i+1:])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return pageNum(paths[i]) < pageNum(paths[j]) })
}
