package entity

import (
	"encoding/json"
	"strings"
)

// Medication is one prescription line.
type Medication struct {
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Tablets      string `json:"tablets"`
}

// IsEmpty reports whether all four fields are blank.
func (m Medication) IsEmpty() bool {
	return strings.TrimSpace(m.MedicineName) == "" &&
		strings.TrimSpace(m.Dosage) == "" &&
		strings.TrimSpace(m.Duration) == "" &&
		strings.TrimSpace(m.Tablets) == ""
}

// StructuredRecord is the output of document processing. Every field is always present
// when serialized; Prescription encodes as [] rather than null.
type StructuredRecord struct {
	PatientName  string       `json:"patientName"`
	Date         string       `json:"date"`
	DoctorName   string       `json:"doctorName"`
	Diagnosis    string       `json:"diagnosis"`
	Prescription []Medication `json:"prescription"`
	Notes        string       `json:"notes"`
	RecordType   string       `json:"recordType"`
	DocumentType string       `json:"documentType"`
	Summary      string       `json:"summary"`
	OriginalText string       `json:"originalText"`
	FilePath     string       `json:"filePath"`
}

// HasContent reports whether extraction found anything worth summarizing.
func (r StructuredRecord) HasContent() bool {
	return strings.TrimSpace(r.PatientName) != "" ||
		strings.TrimSpace(r.Diagnosis) != "" ||
		len(r.Prescription) > 0
}

func (r StructuredRecord) MarshalJSON() ([]byte, error) {
	type alias StructuredRecord
	if r.Prescription == nil {
		r.Prescription = []Medication{}
	}
	return json.Marshal(alias(r))
}
