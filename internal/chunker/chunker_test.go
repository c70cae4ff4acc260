package chunker

import (
	"strings"
	"testing"
)

func TestNewChunker_Invalid(t *testing.T) {
	if _, err := NewChunker(0, 0); err == nil {
		t.Error("zero size should be rejected")
	}
	if _, err := NewChunker(100, -1); err == nil {
		t.Error("negative overlap should be rejected")
	}
	if _, err := NewChunker(100, 100); err == nil {
		t.Error("overlap equal to size should be rejected")
	}
	if _, err := NewChunker(100, 150); err == nil {
		t.Error("overlap above size should be rejected")
	}
}

func TestChunk_Empty(t *testing.T) {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
	if chunks := c.Chunk("   \n\t  "); chunks != nil {
		t.Errorf("whitespace text should return nil, got %v", chunks)
	}
}

func TestChunk_ShortText(t *testing.T) {
	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	text := "take one tablet daily"
	chunks := c.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("text shorter than one window should give 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("Text=%q, want %q", chunks[0].Text, text)
	}
	if chunks[0].Start != 0 || chunks[0].End != len(text) {
		t.Errorf("span [%d,%d), want [0,%d)", chunks[0].Start, chunks[0].End, len(text))
	}
}

func TestChunk_WindowsAndOverlap(t *testing.T) {
	const size, overlap = 500, 100
	c, _ := NewChunker(size, overlap)
	text := strings.Repeat("abcdefghij", 120) // 1200 chars, no whitespace
	chunks := c.Chunk(text)

	// ceil((L - overlap) / (size - overlap)) for L > size
	wantCount := ((len(text) - overlap) + (size - overlap) - 1) / (size - overlap)
	if len(chunks) != wantCount {
		t.Fatalf("chunk count=%d, want %d", len(chunks), wantCount)
	}

	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %d, want 0", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start != chunks[i-1].End-overlap {
			t.Errorf("chunk %d starts at %d, want %d", i, chunks[i].Start, chunks[i-1].End-overlap)
		}
	}
	for i, ch := range chunks {
		if ch.Length != ch.End-ch.Start {
			t.Errorf("chunk %d Length=%d, want %d", i, ch.Length, ch.End-ch.Start)
		}
		if i < len(chunks)-1 && ch.Length != size {
			t.Errorf("chunk %d Length=%d, want full window %d", i, ch.Length, size)
		}
	}
}

func TestChunk_DropsWhitespaceWindows(t *testing.T) {
	c, _ := NewChunker(5, 1)
	// Windows: [0,5)="abcd ", [4,9)="     " (dropped), [8,13)=" xyz".
	text := "abcd     xyz"
	chunks := c.Chunk(text)
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			t.Errorf("whitespace-only chunk survived: %+v", ch)
		}
	}
	joined := ""
	for _, ch := range chunks {
		joined += ch.Text
	}
	if !strings.Contains(joined, "abcd") || !strings.Contains(joined, "xyz") {
		t.Errorf("content lost across windows: %q", joined)
	}
}
