package fields

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Fields is the fully-defaulted set of keys the model is asked to produce.
type Fields struct {
	PatientName  string              `json:"patientName"`
	Date         string              `json:"date"`
	DoctorName   string              `json:"doctorName"`
	Diagnosis    string              `json:"diagnosis"`
	Prescription []entity.Medication `json:"prescription"`
	RecordType   string              `json:"recordType"`
	Notes        string              `json:"notes"`
}

// Medication key synonyms models commonly emit. Canonical keys win when both are present.
var medicationSynonyms = map[string][]string{
	"medicineName": {"name", "medicine", "medication", "drug"},
	"dosage":       {"dose"},
	"tablets":      {"quantity"},
}

// Normalize turns a decoded model object into Fields. Missing or ill-typed keys
// fall back to their zero value; the returned notes list what was coerced.
func Normalize(obj map[string]any) (Fields, []string) {
	var notes []string
	str := func(key string) string {
		s, note := coerceString(obj[key])
		if note != "" {
			notes = append(notes, key+"("+note+")")
		}
		return s
	}

	f := Fields{
		PatientName: str("patientName"),
		DoctorName:  str("doctorName"),
		Diagnosis:   str("diagnosis"),
		RecordType:  str("recordType"),
		Notes:       str("notes"),
	}

	rawDate := str("date")
	f.Date = NormalizeDate(rawDate)
	if rawDate != "" && f.Date == "" {
		notes = append(notes, "date(unparsed)")
	}

	meds, medNotes := NormalizeMedications(obj["prescription"])
	f.Prescription = meds
	notes = append(notes, medNotes...)
	return f, notes
}

// NormalizeMedications coerces a raw prescription value into a medication list.
// Non-array values yield an empty list; entries that are not objects or whose four
// fields are all empty are dropped.
func NormalizeMedications(v any) ([]entity.Medication, []string) {
	out := []entity.Medication{}
	if v == nil {
		return out, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return out, []string{"prescription(not array)"}
	}

	var notes []string
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("prescription[%d](not object)", i))
			continue
		}
		med := entity.Medication{
			MedicineName: medicationField(m, "medicineName"),
			Dosage:       medicationField(m, "dosage"),
			Duration:     medicationField(m, "duration"),
			Tablets:      medicationField(m, "tablets"),
		}
		if med.IsEmpty() {
			notes = append(notes, fmt.Sprintf("prescription[%d](empty)", i))
			continue
		}
		out = append(out, med)
	}
	return out, notes
}

// medicationField reads a canonical key, falling back to its synonyms.
func medicationField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		s, _ := coerceString(v)
		return s
	}
	for _, alt := range medicationSynonyms[key] {
		if v, ok := m[alt]; ok {
			s, _ := coerceString(v)
			return s
		}
	}
	return ""
}

// NormalizeMedicationList applies the same rules to an already-typed list.
func NormalizeMedicationList(meds []entity.Medication) []entity.Medication {
	out := make([]entity.Medication, 0, len(meds))
	for _, m := range meds {
		m = entity.Medication{
			MedicineName: strings.TrimSpace(m.MedicineName),
			Dosage:       strings.TrimSpace(m.Dosage),
			Duration:     strings.TrimSpace(m.Duration),
			Tablets:      strings.TrimSpace(m.Tablets),
		}
		if m.IsEmpty() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// coerceString renders scalars as strings. null and missing become "" silently;
// arrays and objects become "" with a note.
func coerceString(v any) (string, string) {
	switch t := v.(type) {
	case nil:
		return "", ""
	case string:
		return strings.TrimSpace(t), ""
	case json.Number:
		return t.String(), ""
	case float64:
		return fmt.Sprintf("%g", t), ""
	case bool:
		if t {
			return "true", "bool"
		}
		return "false", "bool"
	default:
		return "", "type"
	}
}

// dateLayouts are tried in order. Slashed and dashed numeric dates are month-first
// (01/02/2006 is January 2); dotted numeric dates are day-first (5.3.2024 is 5 March).
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"2.1.2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"02-Jan-2006",
}

// NormalizeDate converts a date in one of the known layouts to YYYY-MM-DD.
// Unknown layouts return "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
