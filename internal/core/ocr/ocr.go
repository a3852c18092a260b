package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Extraction methods reported in ExtractionResult.Method.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	DPI         int    // rasterization DPI for scanned PDFs, default 300
	MaxPages    int    // 0 = no limit
	PDFFallback bool   // OCR rasterized pages when the PDF has no text layer

	HeicConverter string // heif-convert | magick | sips; required for HEIC/HEIF images

	Timeout time.Duration // per document; 0 = caller's deadline only
}

// ConfigFrom maps application config onto extractor config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		Pdftoppm:      c.Pdftoppm,
		DPI:           c.DPI,
		PDFFallback:   c.PDFFallback,
		HeicConverter: c.HeicConverter,
		Timeout:       c.Timeout,
	}
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType constants.Format
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
}

// Extractor turns a PDF or image document into plain text.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, ExecRunner{}, logger)
}

func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract branches on the declared MIME type. It fails with common.ErrUnsupportedFormat
// for anything other than a PDF or an image, and with common.ErrExtraction when the
// underlying parse/OCR fails or produces only whitespace.
func (e *Extractor) Extract(ctx context.Context, doc entity.Document) (ExtractionResult, error) {
	start := time.Now()
	format := constants.FormatForMime(doc.MimeType)
	logger := e.logger.With("req_id", common.RequestIDFromContext(ctx), "mime", doc.MimeType, "name", displayName(doc))

	if format == constants.FormatUnknown {
		logger.Warn("ocr.extract.unsupported")
		return ExtractionResult{}, common.UnsupportedFormatError(doc.MimeType)
	}
	if len(doc.Content) == 0 && doc.Path == "" {
		return ExtractionResult{}, common.ExtractionError("document has neither content nor path", common.ErrInvalidInput)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	logger.Debug("ocr.extract.start", "format", format)
	var (
		res ExtractionResult
		err error
	)
	switch format {
	case constants.FormatPDF:
		res, err = e.extractPDF(ctx, doc, logger)
	case constants.FormatImage:
		res, err = e.extractImage(ctx, doc, logger)
	}
	res.SourceType = format
	res.Duration = time.Since(start)
	if err != nil {
		logger.Error("ocr.extract.failed", "elapsed_ms", res.Duration.Milliseconds(), "error", err)
		return res, common.ExtractionError(fmt.Sprintf("%s extraction", strings.ToLower(string(format))), err)
	}
	if strings.TrimSpace(res.Text) == "" {
		logger.Warn("ocr.extract.empty", "method", res.Method, "pages", res.Pages)
		return res, common.ExtractionError("no text found in document", nil)
	}

	logger.Info("ocr.extract.ok",
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// withLocalFile yields a filesystem path for doc, spilling Content to a temp file
// when the document only exists in memory.
func withLocalFile(doc entity.Document, fn func(path string) error) error {
	if len(doc.Content) == 0 {
		return fn(doc.Path)
	}
	ext := filepath.Ext(doc.OriginalName)
	if ext == "" {
		ext = filepath.Ext(doc.Path)
	}
	f, err := os.CreateTemp("", "medocs-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(doc.Content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return fn(f.Name())
}

func readContent(doc entity.Document) ([]byte, error) {
	if len(doc.Content) > 0 {
		return doc.Content, nil
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.Path, err)
	}
	return data, nil
}

func displayName(doc entity.Document) string {
	if doc.OriginalName != "" {
		return doc.OriginalName
	}
	return filepath.Base(doc.Path)
}
