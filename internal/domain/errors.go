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
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeCorpusMissing         = "CORPUS_MISSING"
	ErrCodeSymbolNotFound        = "SYMBOL_NOT_FOUND"
	ErrCodeGenerationUnavailable = "GENERATION_UNAVAILABLE"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeInvalidOperation      = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyQuestion       = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrInvalidK            = NewDomainError(ErrCodeValidation, "k must be a positive integer")
	ErrInvalidChunkConfig  = NewDomainError(ErrCodeValidation, "chunk window must be positive and larger than the overlap")
	ErrUnsupportedDocument = NewDomainError(ErrCodeValidation, "unsupported document type")
)

// Corpus errors
var (
	ErrCorpusMissing = NewDomainError(ErrCodeCorpusMissing, "corpus has not been ingested yet, run ingest first")
	ErrCorpusEmpty   = NewDomainError(ErrCodeInvalidOperation, "no documents found to ingest")
)

// Price tool errors
var (
	ErrSymbolNotFound    = NewDomainError(ErrCodeSymbolNotFound, "unknown ticker symbol")
	ErrPriceTableMissing = NewDomainError(ErrCodeNotFound, "price table not found")
	ErrEmptyPriceSeries  = NewDomainError(ErrCodeInvalidOperation, "price series has no data points")
)

// Generation errors
var (
	ErrGenerationUnavailable = NewDomainError(ErrCodeGenerationUnavailable, "language model is unavailable")
)
