package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr/ocrtest"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

type call struct {
	name string
	args []string
}

// stubRunner answers tesseract/pdftoppm invocations without spawning processes.
type stubRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(ctx context.Context, name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(ctx context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{name: name, args: args})
	s.mu.Unlock()
	return s.fn(ctx, name, args)
}

func newTestExtractor(cfg Config, r Runner) *Extractor {
	return NewExtractorWithRunner(cfg, r, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func failingRunner(t *testing.T) *stubRunner {
	return &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		t.Fatalf("runner must not be called")
		return nil, nil, nil
	}}
}

func TestExtract_PDFPagesInOrder(t *testing.T) {
	data := ocrtest.BuildPDF("Patient: John Smith, Dr. Adams prescribed Amoxicillin 500mg for 7 days", "Follow up in two weeks")
	e := newTestExtractor(Config{}, failingRunner(t))

	res, err := e.Extract(context.Background(), entity.Document{Content: data, MimeType: "application/pdf", OriginalName: "rx.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "Patient: John Smith, Dr. Adams prescribed Amoxicillin 500mg for 7 days\nFollow up in two weeks", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, MethodPDFText, res.Method)
	assert.Equal(t, constants.FormatPDF, res.SourceType)
}

func TestExtract_PDFBlankPagesAddNoSeparator(t *testing.T) {
	data := ocrtest.BuildPDF("page one", "", "page three", "page four")

	res, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(), entity.Document{Content: data, MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "page one\npage three\npage four", res.Text)
	assert.Equal(t, 4, res.Pages)
}

func TestExtract_PDFFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab.pdf")
	require.NoError(t, os.WriteFile(path, ocrtest.BuildPDF("Hemoglobin 13.5"), 0o600))

	res, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(), entity.Document{Path: path, MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin 13.5", res.Text)
}

func TestExtract_PDFCorrupt(t *testing.T) {
	_, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(), entity.Document{
		Content:  []byte("definitely not a pdf, just some bytes that go on for a while to pass the tail read"),
		MimeType: "application/pdf",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_PDFWithoutTextFails(t *testing.T) {
	_, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(), entity.Document{
		Content:  ocrtest.BuildPDF("", ""),
		MimeType: "application/pdf",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_PDFScannedFallback(t *testing.T) {
	r := &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []int{1, 2, 10} {
				if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, n), []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("text of " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, errors.New("unexpected command")
	}}
	e := newTestExtractor(Config{PDFFallback: true}, r)

	res, err := e.Extract(context.Background(), entity.Document{Content: ocrtest.BuildPDF("", ""), MimeType: "application/pdf", OriginalName: "scan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "text of page-1.png\ntext of page-2.png\ntext of page-10.png", res.Text)
	assert.Equal(t, "pdftoppm", r.calls[0].name)
	assert.Contains(t, r.calls[0].args, "300")
}

func TestExtract_ImageOCR(t *testing.T) {
	r := &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		return []byte("Patient:\tJane   Doe  \r\n\n\n\n-----\nRx: Ibuprofen\n"), nil, nil
	}}
	e := newTestExtractor(Config{}, r)

	res, err := e.Extract(context.Background(), entity.Document{Path: "/uploads/scan.png", MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Patient: Jane Doe\n\nRx: Ibuprofen", res.Text)
	assert.Equal(t, MethodImageOCR, res.Method)
	assert.Equal(t, "eng", res.Language)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{"/uploads/scan.png", "stdout", "-l", "eng"}, r.calls[0].args)
}

func TestExtract_ImageFromContentUsesTempFile(t *testing.T) {
	var seen string
	r := &stubRunner{fn: func(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
		seen = args[0]
		b, err := os.ReadFile(args[0])
		if err != nil {
			return nil, nil, err
		}
		return []byte("read " + string(b)), nil, nil
	}}

	res, err := newTestExtractor(Config{}, r).Extract(context.Background(), entity.Document{
		Content:      []byte("gif-bytes"),
		MimeType:     "image/gif",
		OriginalName: "xray.gif",
	})
	require.NoError(t, err)
	assert.Equal(t, "read gif-bytes", res.Text)
	assert.True(t, strings.HasSuffix(seen, ".gif"))
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr), "temp file removed")
}

func TestExtract_HEICConvertedBeforeOCR(t *testing.T) {
	r := &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "magick":
			return nil, nil, os.WriteFile(args[1], []byte("png"), 0o644)
		case "tesseract":
			return []byte("Dr. Chen"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}}

	res, err := newTestExtractor(Config{HeicConverter: "magick"}, r).Extract(context.Background(),
		entity.Document{Path: "/uploads/photo.heic", MimeType: "image/heic"})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Chen", res.Text)

	require.Len(t, r.calls, 2)
	assert.Equal(t, "magick", r.calls[0].name)
	assert.Equal(t, "/uploads/photo.heic", r.calls[0].args[0])
	png := r.calls[0].args[1]
	assert.Equal(t, png, r.calls[1].args[0])
	_, statErr := os.Stat(filepath.Dir(png))
	assert.True(t, os.IsNotExist(statErr), "converted file removed")
}

func TestExtract_HEICWithoutConverter(t *testing.T) {
	_, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(),
		entity.Document{Path: "photo.heif", MimeType: "image/heif"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_ImageOCRFailure(t *testing.T) {
	r := &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error in pixReadStream: Unknown format"), errors.New("exit status 1")
	}}

	_, err := newTestExtractor(Config{}, r).Extract(context.Background(), entity.Document{Path: "corrupt.jpg", MimeType: "image/jpeg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_ImageBlankText(t *testing.T) {
	r := &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		return []byte(" \n\t \n"), nil, nil
	}}

	_, err := newTestExtractor(Config{}, r).Extract(context.Background(), entity.Document{Path: "blank.png", MimeType: "image/png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := newTestExtractor(Config{}, failingRunner(t)).Extract(context.Background(), entity.Document{Path: "notes.txt", MimeType: "text/plain"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, common.ErrExtraction)
}

func TestExtract_Timeout(t *testing.T) {
	r := &stubRunner{fn: func(ctx context.Context, _ string, _ []string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}}

	_, err := newTestExtractor(Config{Timeout: 20 * time.Millisecond}, r).Extract(context.Background(), entity.Document{Path: "slow.png", MimeType: "image/png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b\n\nc", Normalize("a\t b  \r\n\r\n\r\n\r\nc\f"))
	assert.Equal(t, "Dx: flu", Normalize("______\nDx: flu\n"))
}
