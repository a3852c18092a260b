package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

func (e *Extractor) extractPDF(ctx context.Context, doc entity.Document, logger *slog.Logger) (ExtractionResult, error) {
	data, err := readContent(doc)
	if err != nil {
		return ExtractionResult{Method: MethodPDFText}, err
	}

	text, pages, err := pdfText(data)
	if err != nil {
		return ExtractionResult{Method: MethodPDFText, Pages: pages}, err
	}
	if err := ctx.Err(); err != nil {
		return ExtractionResult{Method: MethodPDFText, Pages: pages}, err
	}

	res := ExtractionResult{Text: text, Pages: pages, Method: MethodPDFText}
	if strings.TrimSpace(text) != "" || !e.cfg.PDFFallback {
		return res, nil
	}

	logger.Info("ocr.pdf.fallback", "pages", pages)
	var ocrText string
	var ocrPages int
	var warns []string
	err = withLocalFile(doc, func(path string) error {
		var err error
		ocrText, ocrPages, warns, err = e.pdfToOCR(ctx, path, logger)
		return err
	})
	if err != nil {
		return res, err
	}
	return ExtractionResult{
		Text:     ocrText,
		Pages:    ocrPages,
		Method:   MethodPDFOCR,
		Language: e.cfg.TesseractLang,
		Warnings: warns,
	}, nil
}

// pdfText returns the normalized text layer of every page joined in page order,
// one newline between pages. Pages without text add no separator.
func pdfText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		if pageText = Normalize(pageText); pageText != "" {
			parts = append(parts, pageText)
		}
	}
	return strings.Join(parts, "\n"), pages, nil
}
