package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeExtraction        = "EXTRACTION_FAILURE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Extraction errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrMissingMediaType  = NewDomainError(ErrCodeUnsupportedFormat, "document media type not declared")
)

// Pipeline validation errors
var (
	ErrInvalidConfiguration = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
	ErrEmptyInput           = NewDomainError(ErrCodeValidation, "extracted document text is empty")
)

// Completion service errors
var (
	ErrServiceUnavailable = NewDomainError(ErrCodeUpstream, "completion service unavailable")
	ErrRateLimited        = NewDomainError(ErrCodeRateLimited, "completion service rate limit exceeded")
	ErrMalformedResponse  = NewDomainError(ErrCodeUpstream, "completion service returned no message content")
)

// Persistence errors
var (
	ErrResultNotFound  = NewDomainError(ErrCodeNotFound, "no analysis result stored for this record")
	ErrBlobMissing     = NewDomainError(ErrCodeNotFound, "analysis result blob missing from storage")
	ErrRecordNotFound  = NewDomainError(ErrCodeNotFound, "analysis record not found")
	ErrAmbiguousRecord = NewDomainError(ErrCodeConflict, "multiple analysis records match one analysis id")
)

// NewExtractionError wraps a parser failure for a recognized format.
func NewExtractionError(mediaType string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, fmt.Sprintf("failed to extract text from %s document", mediaType), err)
}

// PartialSummaryError reports a map-phase failure for a single chunk.
// The whole analysis fails: a missing partial would corrupt the final
// narrative, so chunk failures are never skipped.
type PartialSummaryError struct {
	ChunkIndex int
	Err        error
}

func (e *PartialSummaryError) Error() string {
	return fmt.Sprintf("[%s] summarization failed for chunk %d: %v", ErrCodeUpstream, e.ChunkIndex, e.Err)
}

func (e *PartialSummaryError) Unwrap() error {
	return e.Err
}

// ResultParseError reports a reduce-phase response that is not the expected
// JSON shape. Raw carries the offending response text for diagnostics.
type ResultParseError struct {
	Raw string
	Err error
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("[%s] analysis response is not valid structured JSON: %v", ErrCodeUpstream, e.Err)
}

func (e *ResultParseError) Unwrap() error {
	return e.Err
}

// Save stages, reported by SaveError so callers know which write failed.
const (
	SaveStageOriginalBlob = "original-blob"
	SaveStageResultBlob   = "result-blob"
	SaveStageMetadata     = "metadata"
)

// SaveError reports which stage of a save operation failed.
type SaveError struct {
	Stage string
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("[%s] save failed at stage %s: %v", ErrCodeInternalError, e.Stage, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
