package models

import "time"

// ValidationResult is the outcome of a content-safety check. Confidence is
// the fraction of the healthcare vocabulary matched, when applicable.
type ValidationResult struct {
	IsValid    bool    `json:"is_valid"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Matches    int     `json:"matches,omitempty"`
}

// ContextSnippet is one retrieved piece of context for a query. Score is set
// only in similarity mode.
type ContextSnippet struct {
	Text       string    `json:"text"`
	Score      float64   `json:"score,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	UploadDate time.Time `json:"upload_date,omitempty"`
}

// ProcessResult reports what an accepted upload produced.
type ProcessResult struct {
	Success     bool `json:"success"`
	VectorCount int  `json:"vector_count"`
	TextLength  int  `json:"text_length"`
	ChunkCount  int  `json:"chunk_count"`
}
