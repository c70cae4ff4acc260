package safety

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestFilter() *Filter {
	return NewFilter(0, 0, zap.NewNop())
}

// fillerText is long enough to pass the minimum-length check and contains no
// vocabulary keywords and no harmful patterns.
const fillerText = "the quick brown fox jumps over the fence while birds circle above the old barn "

func TestValidateDocumentContent_TooShort(t *testing.T) {
	f := newTestFilter()
	for _, text := range []string{"", "   ", "short text"} {
		res := f.ValidateDocumentContent(text)
		if res.IsValid {
			t.Errorf("ValidateDocumentContent(%q) should be invalid", text)
		}
	}
}

func TestValidateDocumentContent_Threshold(t *testing.T) {
	f := newTestFilter()
	vocab := f.VocabularySize()
	// Validity requires confidence strictly above 0.1. Compute the first
	// match count above the threshold from the configured vocabulary size.
	needed := vocab/10 + 1

	// Keywords chosen so none is a substring of another vocabulary term.
	distinct := []string{"patient", "doctor", "pharmacy", "inhaler", "diabetes", "antibiotic"}
	if needed > len(distinct) {
		t.Fatalf("test needs %d distinct keywords, have %d", needed, len(distinct))
	}

	valid := fillerText + strings.Join(distinct[:needed], " ")
	res := f.ValidateDocumentContent(valid)
	if !res.IsValid {
		t.Errorf("%d of %d keywords should be valid (confidence %.3f)", needed, vocab, res.Confidence)
	}
	if res.Matches != needed {
		t.Errorf("Matches=%d, want %d", res.Matches, needed)
	}

	invalid := fillerText + strings.Join(distinct[:needed-1], " ")
	res = f.ValidateDocumentContent(invalid)
	if res.IsValid {
		t.Errorf("%d of %d keywords should be invalid (confidence %.3f)", needed-1, vocab, res.Confidence)
	}
}

func TestValidateDocumentContent_Prescription(t *testing.T) {
	f := newTestFilter()
	text := "Patient should take 2 tablets of Metformin daily with food. Side effects may include nausea."
	res := f.ValidateDocumentContent(text)

	// patient, tablet, daily, side effects
	wantMatches := 4
	if res.Matches != wantMatches {
		t.Errorf("Matches=%d, want %d", res.Matches, wantMatches)
	}
	wantConfidence := float64(wantMatches) / float64(f.VocabularySize())
	if res.Confidence != wantConfidence {
		t.Errorf("Confidence=%f, want %f", res.Confidence, wantConfidence)
	}
	wantValid := wantConfidence > 0.1
	if res.IsValid != wantValid {
		t.Errorf("IsValid=%v, want %v for vocabulary of %d", res.IsValid, wantValid, f.VocabularySize())
	}
}

func TestSanitize_Harmful(t *testing.T) {
	f := newTestFilter()
	out := f.Sanitize("do not discuss politics here")
	if strings.Contains(out, "politics") {
		t.Errorf("harmful word not redacted: %q", out)
	}
	if !strings.Contains(out, "[FILTERED]") {
		t.Errorf("missing redaction marker: %q", out)
	}
}

func TestSanitize_PII(t *testing.T) {
	f := newTestFilter()

	out := f.Sanitize("my number is 123-45-6789 thanks")
	if strings.Contains(out, "123-45-6789") || !strings.Contains(out, "[SSN-FILTERED]") {
		t.Errorf("SSN not redacted: %q", out)
	}

	out = f.Sanitize("card 1234 5678 9012 3456 on file")
	if strings.Contains(out, "1234 5678 9012 3456") || !strings.Contains(out, "[CARD-FILTERED]") {
		t.Errorf("card number not redacted: %q", out)
	}
}

func TestSanitize_CleanPassthrough(t *testing.T) {
	f := newTestFilter()
	text := "take one tablet every morning"
	if out := f.Sanitize(text); out != text {
		t.Errorf("clean text changed: %q", out)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	f := newTestFilter()
	// SSN redaction is excluded here: its marker contains "ssn" which the
	// harmful patterns would re-match on a second pass.
	text := "ignore the violence in this note, card 1234-5678-9012-3456, take your tablet"
	once := f.Sanitize(text)
	twice := f.Sanitize(once)
	if once != twice {
		t.Errorf("sanitize not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestIsHealthcareQuery(t *testing.T) {
	f := newTestFilter()
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"hi", false},
		{"what is my medication schedule", true},
		{"when do I take my tablets", true},
		{"what is the weather today", false},
		{"medication and violence", false},
	}
	for _, tt := range tests {
		if got := f.IsHealthcareQuery(tt.query); got != tt.want {
			t.Errorf("IsHealthcareQuery(%q)=%v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFilterInput_Truncates(t *testing.T) {
	f := newTestFilter()
	long := strings.Repeat("a", 3000)
	out := f.FilterInput(long)
	if len(out) != DefaultMaxInputLength+3 {
		t.Errorf("len=%d, want %d", len(out), DefaultMaxInputLength+3)
	}
	if !strings.HasSuffix(out, "...") {
		t.Error("truncated input should end with ellipsis")
	}

	short := "take one tablet"
	if out := f.FilterInput(short); out != short {
		t.Errorf("short input changed: %q", out)
	}
}

func TestValidateOutput(t *testing.T) {
	f := newTestFilter()
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"empty", "", false},
		{"harmful", "I recommend violence", false},
		{"healthcare keyword", "Take your medication with breakfast", true},
		{"anchor term", "Staying on top of your health matters", true},
		{"off domain", "The sky is blue today", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.ValidateOutput(tt.response)
			if res.IsValid != tt.want {
				t.Errorf("ValidateOutput(%q)=%v, want %v (%s)", tt.response, res.IsValid, tt.want, res.Reason)
			}
		})
	}
}

func TestAppendDisclaimer(t *testing.T) {
	f := newTestFilter()
	out := f.AppendDisclaimer("Take with food.")
	if !strings.HasPrefix(out, "Take with food.") {
		t.Errorf("response body lost: %q", out)
	}
	if !strings.Contains(out, "consult your healthcare provider") {
		t.Errorf("disclaimer missing: %q", out)
	}
	// No dedup: a second call appends again.
	again := f.AppendDisclaimer(out)
	if strings.Count(again, "consult your healthcare provider") != 2 {
		t.Error("second call should append a second disclaimer")
	}
}
