// Package chunker splits text into overlapping fixed-size windows. Sizes and
// spans are byte offsets, so a multibyte rune straddling a window boundary is
// split across the two chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kusuri/internal/models"
)

// Default window geometry, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Chunker produces overlapping character windows over raw text.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap in
// characters. overlap >= size would stop windows from advancing, so it is
// rejected as a configuration error.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into windows of at most size characters, each window
// starting overlap characters before the previous one ended. The final
// window may be shorter. Whitespace-only windows are dropped. Text no longer
// than one window yields exactly one chunk.
func (c *Chunker) Chunk(text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	chunks := make([]models.Chunk, 0, len(text)/(c.size-c.overlap)+1)
	start := 0
	for start < len(text) {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		if trimmed := strings.TrimSpace(window); trimmed != "" {
			chunks = append(chunks, models.Chunk{
				Text:   trimmed,
				Start:  start,
				End:    end,
				Length: end - start,
			})
		}
		if end == len(text) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}
