package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/classify"
	"github.com/joseph-ayodele/medical-docs/internal/core/fields"
	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/mocks"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr"
	"github.com/joseph-ayodele/medical-docs/internal/core/ocr/ocrtest"
	"github.com/joseph-ayodele/medical-docs/internal/core/summary"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const johnSmithReply = `{
  "patientName": "John Smith",
  "date": "",
  "doctorName": "Adams",
  "diagnosis": "",
  "prescription": [{"medicineName": "Amoxicillin", "dosage": "500mg", "duration": "7 days", "tablets": ""}],
  "recordType": "prescription",
  "notes": ""
}`

type fixture struct {
	llm      *mocks.MockCompleter
	embedder *mocks.MockEmbedder
	proc     *Processor
}

func newFixture(t *testing.T, runner ocr.Runner) *fixture {
	t.Helper()
	m := mocks.NewMockCompleter().Respond(llm.OpPing, "OK")
	emb := mocks.NewMockEmbedder()

	fx, err := fields.NewExtractor(m,
		classify.New(m, classify.Config{}, quiet),
		summary.New(m, summary.Config{}, quiet),
		fields.Config{}, quiet)
	require.NoError(t, err)

	if runner == nil {
		runner = ocrtest.TesseractOutput("")
	}
	p, err := NewProcessor(Config{InitTimeout: time.Second}, Deps{
		LLM:    m,
		Text:   ocr.NewExtractorWithRunner(ocr.Config{}, runner, quiet),
		Fields: fx,
		Index:  index.New(emb, nil, index.Config{}, quiet),
	}, quiet)
	require.NoError(t, err)
	return &fixture{llm: m, embedder: emb, proc: p}
}

func TestProcessDocument_PDFEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.Respond(llm.OpExtract, johnSmithReply).
		Respond(llm.OpSummarize, "John Smith was prescribed Amoxicillin by Dr. Adams.")

	doc := entity.Document{
		Path:         "uploads/2024/rx-001.pdf",
		Content:      ocrtest.BuildPDF("Patient: John Smith, Dr. Adams prescribed Amoxicillin 500mg for 7 days"),
		MimeType:     constants.MimePDF,
		OriginalName: "rx-001.pdf",
	}
	rec, err := f.proc.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, constants.ProcessorReady, f.proc.State())
	assert.Equal(t, "John Smith", rec.PatientName)
	assert.Equal(t, "Adams", rec.DoctorName)
	assert.Equal(t, []entity.Medication{{MedicineName: "Amoxicillin", Dosage: "500mg", Duration: "7 days", Tablets: ""}}, rec.Prescription)
	assert.Equal(t, "prescription", rec.RecordType)
	assert.Equal(t, "prescription", rec.DocumentType)
	assert.Equal(t, "uploads/2024/rx-001.pdf", rec.FilePath)
	assert.Contains(t, rec.OriginalText, "Amoxicillin 500mg")
	assert.NotEmpty(t, rec.Summary)

	var extract llm.CompletionRequest
	for _, r := range f.llm.Requests() {
		if r.Operation == llm.OpExtract {
			extract = r
		}
	}
	assert.Contains(t, extract.User, "Patient: John Smith")
	assert.Equal(t, 0, f.embedder.Calls(), "processing must not index")
}

func TestProcessDocument_ImageEndToEnd(t *testing.T) {
	f := newFixture(t, ocrtest.TesseractOutput("LAB REPORT\nPatient: Mary Major\nHemoglobin 13.5 g/dL\n"))
	f.llm.Respond(llm.OpExtract, `{"patientName":"Mary Major","diagnosis":"","recordType":"lab result"}`).
		Respond(llm.OpSummarize, "Normal hemoglobin for Mary Major.")

	rec, err := f.proc.ProcessDocument(context.Background(), entity.Document{
		Path:         "/tmp/scan.png",
		Content:      []byte("png"),
		MimeType:     "image/png",
		OriginalName: "scan.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "lab_result", rec.RecordType)
	assert.Equal(t, "Mary Major", rec.PatientName)
	assert.Equal(t, []entity.Medication{}, rec.Prescription)
}

func TestProcessDocument_ComponentErrorsPropagate(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.proc.ProcessDocument(context.Background(), entity.Document{Content: []byte("x"), MimeType: "text/plain"})
		assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
		assert.Equal(t, 0, f.llm.Calls(llm.OpExtract))
	})

	t.Run("extraction", func(t *testing.T) {
		f := newFixture(t, ocrtest.TesseractOutput("   \n"))
		_, err := f.proc.ProcessDocument(context.Background(), entity.Document{Content: []byte("x"), MimeType: "image/jpeg", OriginalName: "a.jpg"})
		assert.ErrorIs(t, err, common.ErrExtraction)
		assert.Equal(t, 0, f.llm.Calls(llm.OpExtract))
	})

	t.Run("malformed", func(t *testing.T) {
		f := newFixture(t, ocrtest.TesseractOutput("some text"))
		f.llm.Respond(llm.OpExtract, "I could not find any fields.")
		rec, err := f.proc.ProcessDocument(context.Background(), entity.Document{Content: []byte("x"), MimeType: "image/gif", OriginalName: "a.gif"})
		assert.ErrorIs(t, err, common.ErrMalformedExtraction)
		assert.Equal(t, entity.StructuredRecord{}, rec)
	})
}

func TestInitialize_FailureIsTerminal(t *testing.T) {
	m := mocks.NewMockCompleter().Fail(llm.OpPing, errors.New("401 invalid api key"))
	emb := mocks.NewMockEmbedder()
	p, err := NewProcessor(Config{}, Deps{
		LLM:    m,
		Text:   ocr.NewExtractorWithRunner(ocr.Config{}, ocrtest.TesseractOutput("x"), quiet),
		Fields: stubFields{},
		Index:  index.New(emb, nil, index.Config{}, quiet),
	}, quiet)
	require.NoError(t, err)
	assert.Equal(t, constants.ProcessorUninitialized, p.State())

	err = p.Initialize(context.Background())
	assert.ErrorIs(t, err, common.ErrProcessorUnavailable)
	assert.Equal(t, constants.ProcessorFailed, p.State())

	_, err = p.ProcessDocument(context.Background(), entity.Document{Content: []byte("x"), MimeType: "image/png"})
	assert.ErrorIs(t, err, common.ErrProcessorUnavailable)
	_, err = p.SearchSimilarDocuments(context.Background(), "headache", 3)
	assert.ErrorIs(t, err, common.ErrProcessorUnavailable)
	_, err = p.IndexDocument(context.Background(), "text", entity.StructuredRecord{})
	assert.ErrorIs(t, err, common.ErrProcessorUnavailable)

	assert.Equal(t, 1, m.Calls(llm.OpPing), "smoke test runs once")
	assert.Equal(t, 0, emb.Calls())
}

func TestInitialize_CanceledCallerLeavesStateUnchanged(t *testing.T) {
	m := mocks.NewMockCompleter().BlockUntilDone()
	p, err := NewProcessor(Config{}, Deps{LLM: m, Text: stubText{}, Fields: stubFields{}}, quiet)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, constants.ProcessorUninitialized, p.State())
}

func TestState_DoesNotWaitForSmokeTest(t *testing.T) {
	m := mocks.NewMockCompleter().BlockUntilDone()
	p, err := NewProcessor(Config{}, Deps{LLM: m, Text: stubText{}, Fields: stubFields{}}, quiet)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Initialize(ctx) }()
	require.Eventually(t, func() bool { return m.Calls(llm.OpPing) == 1 }, time.Second, 5*time.Millisecond)

	states := make(chan constants.ProcessorState, 1)
	go func() { states <- p.State() }()
	select {
	case st := <-states:
		assert.Equal(t, constants.ProcessorUninitialized, st)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("State blocked while the smoke test was running")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestInitialize_TimeoutFails(t *testing.T) {
	m := mocks.NewMockCompleter().BlockUntilDone()
	p, err := NewProcessor(Config{InitTimeout: 20 * time.Millisecond}, Deps{LLM: m, Text: stubText{}, Fields: stubFields{}}, quiet)
	require.NoError(t, err)

	err = p.Initialize(context.Background())
	assert.ErrorIs(t, err, common.ErrProcessorUnavailable)
	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.Equal(t, constants.ProcessorFailed, p.State())
}

func TestInitialize_ConcurrentCallersShareOneSmokeTest(t *testing.T) {
	f := newFixture(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.proc.Initialize(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.llm.Calls(llm.OpPing))
}

func TestSearchSimilarDocuments(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	recs, err := f.proc.SearchSimilarDocuments(ctx, "headache", 3)
	require.NoError(t, err)
	assert.Empty(t, recs, "empty index returns no records")

	for _, d := range []struct{ text, patient string }{
		{"migraine headache, prescribed sumatriptan", "A"},
		{"lab result: cholesterol panel", "B"},
		{"tension headache", "C"},
	} {
		_, err := f.proc.IndexDocument(ctx, d.text, entity.StructuredRecord{PatientName: d.patient})
		require.NoError(t, err)
	}

	recs, err = f.proc.SearchSimilarDocuments(ctx, "headache", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.ElementsMatch(t, []string{"A", "C"}, []string{recs[0].PatientName, recs[1].PatientName})

	n, err := f.proc.IndexSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = f.proc.SearchSimilarDocuments(ctx, "  ", 2)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSearchSimilarDocuments_NoIndex(t *testing.T) {
	m := mocks.NewMockCompleter().Respond(llm.OpPing, "OK")
	p, err := NewProcessor(Config{}, Deps{LLM: m, Text: stubText{}, Fields: stubFields{}}, quiet)
	require.NoError(t, err)

	recs, err := p.SearchSimilarDocuments(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = p.IndexDocument(context.Background(), "text", entity.StructuredRecord{})
	assert.ErrorIs(t, err, common.ErrEmbedding)
}

func TestNewProcessor_RequiresDeps(t *testing.T) {
	_, err := NewProcessor(Config{}, Deps{}, quiet)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &common.Config{}
	cfg.LLM.Timeout = time.Second
	cfg.Index.DefaultLimit = 2
	m := mocks.NewMockCompleter().Respond(llm.OpPing, "OK")

	p, err := NewFromConfig(cfg, Models{Completer: m, Embedder: mocks.NewMockEmbedder()}, nil, quiet)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))

	for i := 0; i < 3; i++ {
		_, err := p.IndexDocument(context.Background(), "chest pain", entity.StructuredRecord{})
		require.NoError(t, err)
	}
	recs, err := p.SearchSimilarDocuments(context.Background(), "chest", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

type stubText struct{}

func (stubText) Extract(context.Context, entity.Document) (ocr.ExtractionResult, error) {
	return ocr.ExtractionResult{Text: "text"}, nil
}

type stubFields struct{}

func (stubFields) ExtractStructured(context.Context, string) (entity.StructuredRecord, error) {
	return entity.StructuredRecord{}, nil
}
