package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/medical-docs/constants"
)

// ExtractionSystemPrompt constrains the model to the record JSON shape.
func ExtractionSystemPrompt() string {
	parts := []string{
		"You are a medical document parser.",
		"Return ONLY a raw JSON object, with no markdown and no commentary.",
		"The object must have exactly these keys: " + strings.Join(RecordFields, ", ") + ".",
		"Each prescription entry must have exactly these keys: " + strings.Join(MedicationFields, ", ") + ".",
		"Use an empty string for any missing text field and an empty array when there is no prescription.",
		"Copy names, diagnoses and medication details verbatim from the document; do not paraphrase or invent.",
		"Write the date as YYYY-MM-DD when a date is present.",
		"recordType must be one of: " + strings.Join(constants.RecordTypesAsStringSlice(), ", ") + ".",
		"Never output null.",
	}
	return strings.Join(parts, " ") + "\n\nJSON Schema:\n" + mustJSON(BuildRecordJSONSchema())
}

// ExtractionUserPrompt wraps the document text, truncated to maxChars runes when maxChars > 0.
func ExtractionUserPrompt(text string, maxChars int) string {
	var b strings.Builder
	b.WriteString("Document text:\n")
	b.WriteString(Truncate(text, maxChars))
	b.WriteString("\n\nReturn ONLY the JSON object.")
	return b.String()
}

// RepairUserPrompt asks the model to turn its previous reply into valid JSON.
func RepairUserPrompt(previous string) string {
	return "The following was supposed to be a single JSON object with keys " +
		strings.Join(RecordFields, ", ") +
		" but it is not valid JSON. Return ONLY the corrected JSON object, changing nothing else.\n\n" +
		previous
}

func ClassificationSystemPrompt() string {
	return "You classify medical documents. Answer with exactly one label from this list and nothing else: " +
		strings.Join(constants.RecordTypesAsStringSlice(), ", ") + "."
}

func ClassificationUserPrompt(text string, maxChars int) string {
	return "Document text:\n" + Truncate(text, maxChars) + "\n\nLabel:"
}

func SummarySystemPrompt() string {
	return "You summarize medical documents for the patient's record. " +
		"Write two or three plain sentences covering the patient, the finding or diagnosis and any treatment. " +
		"Do not add facts that are not in the document."
}

func SummaryUserPrompt(text string, maxChars int) string {
	return "Document text:\n" + Truncate(text, maxChars) + "\n\nSummary:"
}

// PingRequest is the smoke-test completion used to verify provider access.
func PingRequest() CompletionRequest {
	return CompletionRequest{
		Operation:   OpPing,
		System:      "You are a health check.",
		User:        "Reply with OK.",
		Temperature: 0,
		MaxTokens:   5,
	}
}

// Truncate cuts s to at most max runes; max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
