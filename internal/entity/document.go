package entity

// Document is an uploaded file handed to the pipeline. Content takes precedence over Path when set.
type Document struct {
	Path         string `json:"path,omitempty"`
	Content      []byte `json:"-"`
	MimeType     string `json:"mime_type"`
	OriginalName string `json:"original_name,omitempty"`
}
