package extract

import "testing"

var _ TextExtractor = (*Extractor)(nil)

func TestExtractText_InvalidPDF(t *testing.T) {
	e := NewExtractor()
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("this is not a pdf"),
		[]byte("%PDF-1.4 truncated garbage"),
	}
	for _, content := range cases {
		if _, err := e.ExtractText(content); err == nil {
			t.Errorf("ExtractText(%q) should fail", content)
		}
	}
}
