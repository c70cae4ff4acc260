package pipeline

import "fmt"

// InputError is a malformed upload request (missing user id, empty body).
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Msg
}

// ExtractionError is a PDF the parser could not extract text from. Fatal for
// that upload.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ContentRejectedError is a parseable PDF whose text does not look like
// medical content. Reason and Confidence give the caller actionable feedback.
type ContentRejectedError struct {
	Reason     string
	Confidence float64
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("content rejected: %s (confidence %.2f)", e.Reason, e.Confidence)
}
