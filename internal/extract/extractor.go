// Package extract provides text extraction from uploaded PDF bytes.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor extracts plain text from raw document bytes.
type TextExtractor interface {
	ExtractText(content []byte) (string, error)
}

// Extractor pulls the plain text out of prescription PDFs. Scanned,
// image-only prescriptions produce little or no text; those fall through to
// the content validator, which rejects them for lack of medical content.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the text of all pages, joined by newlines. Returns an
// error if the bytes are not a parseable PDF.
func (e *Extractor) ExtractText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}
