// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// Document kinds used when building per-user document IDs.
const (
	KindChunk = "chunk"
	KindDoc   = "doc"
)

// Document is one stored unit of prescription text for a user. In similarity
// mode a document is a single chunk with its embedding; in full-text mode it
// is the whole sanitized text of an upload. Documents are immutable once
// stored and live only for the process lifetime.
type Document struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename,omitempty"`
	UploadDate time.Time `json:"upload_date"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float64 `json:"-"`
}

// Chunk is an overlapping window of a document's text, produced at ingest
// time and consumed immediately for embedding. Not persisted on its own.
type Chunk struct {
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Length int    `json:"length"`
}

// UploadMetadata accompanies raw PDF bytes into the pipeline.
type UploadMetadata struct {
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
}
