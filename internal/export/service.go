package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

const (
	RecordsSheet     = "records"
	MedicationsSheet = "medications"
)

var recordHeaders = []string{
	"Date",
	"Patient",
	"Doctor",
	"Record Type",
	"Diagnosis",
	"Medications",
	"Notes",
	"Summary",
	"File Path",
}

var medicationHeaders = []string{
	"Date",
	"Patient",
	"Medicine",
	"Dosage",
	"Duration",
	"Tablets",
	"File Path",
}

// Searcher finds records similar to a query.
type Searcher interface {
	SearchSimilarDocuments(ctx context.Context, query string, limit int) ([]entity.StructuredRecord, error)
}

// Service produces XLSX bytes for exports.
type Service struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewService(searcher Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{searcher: searcher, logger: logger}
}

// ExportSearchXLSX returns a workbook of the records most similar to query.
func (s *Service) ExportSearchXLSX(ctx context.Context, query string, limit int) ([]byte, error) {
	start := time.Now()
	recs, err := s.searcher.SearchSimilarDocuments(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	b, err := WriteRecordsXLSX(recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"query_len", len(query),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// WriteRecordsXLSX returns a workbook with one row per record on the records sheet
// and one row per medication on the medications sheet.
func WriteRecordsXLSX(records []entity.StructuredRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(MedicationsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(RecordsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, RecordsSheet, 1, toAny(recordHeaders))
	writeRow(f, MedicationsSheet, 1, toAny(medicationHeaders))

	medRow := 2
	for i, r := range records {
		writeRow(f, RecordsSheet, i+2, []any{
			r.Date,
			r.PatientName,
			r.DoctorName,
			r.RecordType,
			r.Diagnosis,
			FlattenMedications(r.Prescription),
			truncate(r.Notes, 500),
			truncate(r.Summary, 500),
			r.FilePath,
		})
		for _, m := range r.Prescription {
			writeRow(f, MedicationsSheet, medRow, []any{
				r.Date,
				r.PatientName,
				m.MedicineName,
				m.Dosage,
				m.Duration,
				m.Tablets,
				r.FilePath,
			})
			medRow++
		}
	}

	_ = f.SetColWidth(RecordsSheet, "A", "A", 12) // date
	_ = f.SetColWidth(RecordsSheet, "B", "C", 22) // patient, doctor
	_ = f.SetColWidth(RecordsSheet, "D", "D", 14)
	_ = f.SetColWidth(RecordsSheet, "E", "F", 36)
	_ = f.SetColWidth(RecordsSheet, "G", "H", 48)
	_ = f.SetColWidth(RecordsSheet, "I", "I", 60) // path
	_ = f.SetColWidth(MedicationsSheet, "A", "F", 18)
	_ = f.SetColWidth(MedicationsSheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// FlattenMedications renders a prescription as "name dosage, duration, tablets" entries joined by "; ".
func FlattenMedications(meds []entity.Medication) string {
	parts := make([]string, 0, len(meds))
	for _, m := range meds {
		head := strings.TrimSpace(m.MedicineName + " " + m.Dosage)
		fields := []string{}
		if head != "" {
			fields = append(fields, head)
		}
		if m.Duration != "" {
			fields = append(fields, m.Duration)
		}
		if m.Tablets != "" {
			fields = append(fields, m.Tablets+" tablets")
		}
		parts = append(parts, strings.Join(fields, ", "))
	}
	return strings.Join(parts, "; ")
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
