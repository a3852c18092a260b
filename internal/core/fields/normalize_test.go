package fields

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	obj, err := llm.DecodeObject(s)
	require.NoError(t, err)
	return obj
}

func TestNormalize_Coercion(t *testing.T) {
	obj := decode(t, `{
		"patientName": "  Jane Doe ",
		"date": "March 4, 2024",
		"doctorName": null,
		"diagnosis": ["a", "b"],
		"notes": 42,
		"recordType": true
	}`)

	f, notes := Normalize(obj)
	assert.Equal(t, "Jane Doe", f.PatientName)
	assert.Equal(t, "2024-03-04", f.Date)
	assert.Equal(t, "", f.DoctorName)
	assert.Equal(t, "", f.Diagnosis)
	assert.Equal(t, "42", f.Notes)
	assert.Equal(t, "true", f.RecordType)
	assert.Equal(t, []entity.Medication{}, f.Prescription)
	assert.Contains(t, notes, "diagnosis(type)")
}

func TestNormalize_UnparsedDate(t *testing.T) {
	f, notes := Normalize(map[string]any{"date": "sometime last week"})
	assert.Equal(t, "", f.Date)
	assert.Contains(t, notes, "date(unparsed)")
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2024-01-15":           "2024-01-15",
		"2024/01/15":           "2024-01-15",
		"01/15/2024":           "2024-01-15",
		"1/5/2024":             "2024-01-05",
		"01/02/2024":           "2024-01-02",
		"2024-3-5":             "2024-03-05",
		"5.3.2024":             "2024-03-05",
		"05.03.2024":           "2024-03-05",
		"15 Jan 2024":          "2024-01-15",
		"January 15, 2024":     "2024-01-15",
		"2024-01-15T10:30:00Z": "2024-01-15",
		"":                     "",
		"15th of January":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDate(in), in)
	}
}

func TestNormalizeMedications(t *testing.T) {
	obj := decode(t, `{"prescription": [
		{"medicineName": "", "dosage": "", "duration": "", "tablets": ""},
		{"medicineName": "Aspirin"},
		"ibuprofen",
		{"name": "Metformin", "dose": "500mg", "duration": "30 days", "tablets": 60, "extra": "x"},
		{"medicineName": "Keep", "name": "Ignored"}
	]}`)

	meds, notes := NormalizeMedications(obj["prescription"])
	assert.Equal(t, []entity.Medication{
		{MedicineName: "Aspirin"},
		{MedicineName: "Metformin", Dosage: "500mg", Duration: "30 days", Tablets: "60"},
		{MedicineName: "Keep"},
	}, meds)
	assert.Contains(t, notes, "prescription[0](empty)")
	assert.Contains(t, notes, "prescription[2](not object)")
}

func TestNormalizeMedications_NotArray(t *testing.T) {
	meds, _ := NormalizeMedications(map[string]any{"medicineName": "x"})
	assert.NotNil(t, meds)
	assert.Empty(t, meds)

	meds, notes := NormalizeMedications(nil)
	assert.NotNil(t, meds)
	assert.Empty(t, meds)
	assert.Empty(t, notes)
}

func TestNormalizeMedications_Idempotent(t *testing.T) {
	obj := decode(t, `{"prescription": [
		{"medicineName": "Amoxicillin", "dosage": "500mg", "duration": "7 days"},
		{},
		{"tablets": "10"}
	]}`)
	once, _ := NormalizeMedications(obj["prescription"])

	b, err := json.Marshal(once)
	require.NoError(t, err)
	var again any
	require.NoError(t, json.Unmarshal(b, &again))
	twice, notes := NormalizeMedications(again)

	assert.Equal(t, once, twice)
	assert.Empty(t, notes)
	assert.Equal(t, once, NormalizeMedicationList(once))
}

func TestNormalizeMedicationList(t *testing.T) {
	in := []entity.Medication{
		{MedicineName: " Aspirin "},
		{Dosage: "  "},
	}
	assert.Equal(t, []entity.Medication{{MedicineName: "Aspirin"}}, NormalizeMedicationList(in))
	assert.Equal(t, []entity.Medication{}, NormalizeMedicationList(nil))
}
