package constants

import (
	"strings"
)

type RecordType string

const (
	Prescription RecordType = "prescription"
	LabResult    RecordType = "lab_result"
	XRay         RecordType = "xray"
	MRI          RecordType = "mri"
	Other        RecordType = "other"
)

// DefaultRecordType is used when neither the model nor the classifier produced a label.
const DefaultRecordType = Prescription

var allRecordTypes = []RecordType{
	Prescription,
	LabResult,
	XRay,
	MRI,
	Other,
}

func RecordTypesAsStringSlice() []string {
	result := make([]string, len(allRecordTypes))
	for i, rt := range allRecordTypes {
		result[i] = string(rt)
	}
	return result
}

// Canonicalize maps a free-form label onto the record type enumeration.
// Unknown labels come back as Other with ok=false.
func Canonicalize(input string) (RecordType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.Trim(normalized, " \t\r\n.,;:!\"'`")
	if normalized == "" {
		return Other, false
	}

	synonyms := map[string]RecordType{
		"rx":                   Prescription,
		"prescriptions":        Prescription,
		"medical prescription": Prescription,
		"lab result":           LabResult,
		"lab results":          LabResult,
		"lab-result":           LabResult,
		"lab report":           LabResult,
		"laboratory":           LabResult,
		"blood test":           LabResult,
		"x-ray":                XRay,
		"x ray":                XRay,
		"x_ray":                XRay,
		"radiograph":           XRay,
		"mri scan":             MRI,
		"mri report":           MRI,
	}

	if rt, ok := synonyms[normalized]; ok {
		return rt, true
	}

	for _, rt := range allRecordTypes {
		if normalized == string(rt) {
			return rt, true
		}
	}

	return Other, false
}
