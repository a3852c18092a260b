package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/medical-docs/constants"
)

// isHEIC reports whether the MIME type names a HEIC/HEIF photo, which tesseract cannot read.
func isHEIC(mimeType string) bool {
	switch constants.NormalizeMime(mimeType) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	return false
}

// convertHEICtoPNG converts a HEIC/HEIF file to PNG in a temp directory.
// Returns (outPath, cleanup, err); cleanup is non-nil whenever a temp directory was created.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "medocs-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var errb []byte
	switch converter {
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", logger, in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", logger, in, out)
	case "sips":
		_, errb, err = r.Run(ctx, "sips", logger, "-s", "format", "png", in, "--out", out)
	default:
		return "", cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if err != nil {
		return "", cleanup, fmt.Errorf("%s convert failed: %w: %s", converter, err, truncate(string(errb), 512))
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	logger.Debug("ocr.heic.converted", "converter", converter)
	return out, cleanup, nil
}
