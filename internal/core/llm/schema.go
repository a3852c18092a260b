package llm

import "github.com/joseph-ayodele/medical-docs/constants"

// Top-level keys the extraction prompt asks for, in prompt order.
var RecordFields = []string{"patientName", "date", "doctorName", "diagnosis", "prescription", "recordType", "notes"}

// Keys of one prescription entry.
var MedicationFields = []string{"medicineName", "dosage", "duration", "tablets"}

// BuildRecordJSONSchema returns the JSON Schema (draft 2020-12 subset) of the extracted fields.
// It is shown to the model and used to validate the normalized result.
func BuildRecordJSONSchema() map[string]any {
	medProps := map[string]any{}
	for _, f := range MedicationFields {
		medProps[f] = stringProp()
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"patientName": stringProp(),
			"date":        map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2}-\d{2})?$`},
			"doctorName":  stringProp(),
			"diagnosis":   stringProp(),
			"prescription": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           medProps,
					"required":             MedicationFields,
				},
			},
			"recordType": map[string]any{"type": "string", "enum": constants.RecordTypesAsStringSlice()},
			"notes":      stringProp(),
		},
		"required": RecordFields,
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}
