package entity

import "time"

// IndexedDocument is one entry of the similarity index.
type IndexedDocument struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Embedding []float32        `json:"embedding"`
	Record    StructuredRecord `json:"record"`
	IndexedAt time.Time        `json:"indexedAt"`
}
