package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

func (e *Extractor) extractImage(ctx context.Context, doc entity.Document, logger *slog.Logger) (ExtractionResult, error) {
	res := ExtractionResult{Pages: 1, Method: MethodImageOCR, Language: e.cfg.TesseractLang}
	err := withLocalFile(doc, func(path string) error {
		if isHEIC(doc.MimeType) {
			png, cleanup, err := convertHEICtoPNG(ctx, e.runner, logger, e.cfg.HeicConverter, path)
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				return err
			}
			path = png
		}
		txt, err := e.tesseractOCR(ctx, path, logger)
		if err != nil {
			return err
		}
		res.Text = Normalize(txt)
		return nil
	})
	return res, err
}

// tesseractOCR runs `tesseract <file> stdout -l <lang>` and returns raw stdout.
func (e *Extractor) tesseractOCR(ctx context.Context, path string, logger *slog.Logger) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
