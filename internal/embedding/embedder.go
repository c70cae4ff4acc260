// Package embedding provides text embedding via an external inference
// service, with caching and retry on model warm-up.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
	Close() error
}

// ServiceError is a non-retryable failure response from the embedding
// service. It aborts the batch it occurred in.
type ServiceError struct {
	StatusCode int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service error: status %d", e.StatusCode)
}

// FormatError is a service response that is neither a flat numeric vector
// nor a singly-nested vector-of-one.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected embedding format: %s", e.Detail)
}
