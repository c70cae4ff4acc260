// Package safety validates and sanitizes prescription text and user queries.
// All checks are keyword/pattern based and deterministic; nothing here calls
// out of process.
package safety

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kusuri/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultMinTextLength is the minimum extracted-text length accepted for ingestion.
	DefaultMinTextLength = 50
	// DefaultMaxInputLength bounds text handed to downstream prompts.
	DefaultMaxInputLength = 2000
	// minQueryLength is the shortest query considered at all.
	minQueryLength = 3
	// validConfidence is the keyword-density threshold; validity requires
	// confidence strictly greater than this.
	validConfidence = 0.1
)

// Redaction markers substituted for matched content.
const (
	filteredMarker = "[FILTERED]"
	ssnMarker      = "[SSN-FILTERED]"
	cardMarker     = "[CARD-FILTERED]"
)

// Disclaimer appended to assistant responses before they reach the user.
const disclaimer = "\n\nThis information is for general guidance only. Always consult your healthcare provider for medical advice."

// healthcareVocabulary is the fixed keyword set used for domain validation.
// Matching is case-insensitive substring, no tokenization.
var healthcareVocabulary = []string{
	"medication", "medicine", "prescription", "dosage", "tablet", "capsule",
	"mg", "ml", "dose", "daily", "twice", "morning", "evening", "doctor",
	"pharmacy", "patient", "treatment", "symptoms", "side effects",
	"allergic", "reaction", "blood pressure", "diabetes", "pain", "fever",
	"antibiotic", "vitamin", "supplement", "injection", "inhaler",
}

// harmfulPatterns block content outside the medication domain or outright
// dangerous. Applied before PII redaction.
var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)suicide|kill|death|harm|violence`),
	regexp.MustCompile(`(?i)illegal|drug abuse|overdose`),
	regexp.MustCompile(`(?i)politics|religion|controversial`),
	regexp.MustCompile(`(?i)personal information|ssn|credit card`),
}

var (
	ssnPattern  = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
)

// anchorTerms keep ValidateOutput permissive for responses that stay in
// domain without hitting a vocabulary keyword verbatim.
var anchorTerms = []string{"medication", "health"}

// Filter is the content-safety gate for extracted documents, user queries,
// and model responses.
type Filter struct {
	minTextLength  int
	maxInputLength int
	logger         *zap.Logger
}

// NewFilter creates a filter. Zero limits fall back to the defaults.
func NewFilter(minTextLength, maxInputLength int, logger *zap.Logger) *Filter {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	if maxInputLength <= 0 {
		maxInputLength = DefaultMaxInputLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		minTextLength:  minTextLength,
		maxInputLength: maxInputLength,
		logger:         logger,
	}
}

// VocabularySize returns the number of terms in the healthcare vocabulary.
// Exposed so callers and tests can reason about confidence thresholds.
func (f *Filter) VocabularySize() int {
	return len(healthcareVocabulary)
}

// ValidateDocumentContent decides whether extracted text looks like medical
// content. Confidence is matched keywords over vocabulary size; validity
// requires confidence strictly above 0.1.
func (f *Filter) ValidateDocumentContent(text string) models.ValidationResult {
	if strings.TrimSpace(text) == "" || len(strings.TrimSpace(text)) < f.minTextLength {
		return models.ValidationResult{
			IsValid: false,
			Reason:  "text too short or empty",
		}
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, keyword := range healthcareVocabulary {
		if strings.Contains(lower, keyword) {
			matches++
		}
	}

	confidence := float64(matches) / float64(len(healthcareVocabulary))
	valid := confidence > validConfidence
	f.logger.Debug("document validation",
		zap.Int("keyword_matches", matches),
		zap.Float64("confidence", confidence),
		zap.Bool("valid", valid),
	)

	reason := "no significant medical content found"
	if valid {
		reason = "contains medical content"
	}
	return models.ValidationResult{
		IsValid:    valid,
		Reason:     reason,
		Confidence: confidence,
		Matches:    matches,
	}
}

// Sanitize redacts harmful patterns first, then SSN- and card-shaped digit
// sequences. Text without matches passes through unchanged. Never fails.
func (f *Filter) Sanitize(text string) string {
	sanitized := text
	for _, pattern := range harmfulPatterns {
		sanitized = pattern.ReplaceAllString(sanitized, filteredMarker)
	}
	sanitized = ssnPattern.ReplaceAllString(sanitized, ssnMarker)
	sanitized = cardPattern.ReplaceAllString(sanitized, cardMarker)
	return sanitized
}

// IsHealthcareQuery reports whether a user query is in-domain: at least
// three characters, at least one vocabulary keyword, and no harmful match.
func (f *Filter) IsHealthcareQuery(query string) bool {
	if len(strings.TrimSpace(query)) < minQueryLength {
		return false
	}
	lower := strings.ToLower(query)
	hasKeyword := false
	for _, keyword := range healthcareVocabulary {
		if strings.Contains(lower, keyword) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}
	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(query) {
			f.logger.Debug("query blocked by harmful pattern")
			return false
		}
	}
	return true
}

// FilterInput sanitizes text and truncates it to the configured maximum
// length in bytes, bounding the prompt-injection surface of anything sent
// downstream. Truncation can split a multibyte rune at the cut point.
func (f *Filter) FilterInput(text string) string {
	filtered := f.Sanitize(text)
	if len(filtered) > f.maxInputLength {
		filtered = filtered[:f.maxInputLength] + "..."
		f.logger.Debug("input truncated", zap.Int("max_length", f.maxInputLength))
	}
	return filtered
}

// ValidateOutput checks a model response: empty or harmful responses are
// invalid; otherwise the response must stay in the healthcare domain.
func (f *Filter) ValidateOutput(response string) models.ValidationResult {
	if strings.TrimSpace(response) == "" {
		return models.ValidationResult{IsValid: false, Reason: "empty response"}
	}
	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(response) {
			return models.ValidationResult{IsValid: false, Reason: "response contains harmful content"}
		}
	}

	lower := strings.ToLower(response)
	inDomain := false
	for _, keyword := range healthcareVocabulary {
		if strings.Contains(lower, keyword) {
			inDomain = true
			break
		}
	}
	if !inDomain {
		for _, term := range anchorTerms {
			if strings.Contains(lower, term) {
				inDomain = true
				break
			}
		}
	}

	reason := "response outside healthcare domain"
	if inDomain {
		reason = "valid healthcare response"
	}
	return models.ValidationResult{IsValid: inDomain, Reason: reason}
}

// AppendDisclaimer appends the medical disclaimer. Calling twice appends
// twice; callers apply it at most once per response.
func (f *Filter) AppendDisclaimer(response string) string {
	return response + disclaimer
}
