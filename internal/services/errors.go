package services

import (
	"errors"
	"fmt"

	apperrors "github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Ingestion errors
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoWorksheets        = errors.New("workbook contains no worksheets")
	ErrNoDataRows          = errors.New("worksheet contains no data rows")
	ErrItemColumnNotFound  = errors.New("no word/item column found")
	ErrNoValidWords        = errors.New("no valid words found")
	ErrWordCountOutOfRange = errors.New("word count outside accepted range")

	// Term set errors
	ErrTermSetNotFound = errors.New("term set not found")
	ErrTermSetInUse    = errors.New("term set has existing assessment records")

	// Assessment errors
	ErrAssessmentNotFound     = errors.New("assessment record not found")
	ErrAssessmentNotEditable  = errors.New("assessment record is not in progress")
	ErrOutcomeIndexOutOfRange = errors.New("outcome index outside term set length")

	// Export errors
	ErrTemplateUnavailable = errors.New("marking sheet template unavailable")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IngestError carries the diagnostic context a user needs to fix a bad
// upload: the headers that were actually present, how many valid rows or
// words were found, and a sample of what was parsed.
type IngestError struct {
	Err     error    `json:"-"`
	Message string   `json:"message"`
	Headers []string `json:"headers,omitempty"`
	Count   int      `json:"count,omitempty"`
	Sample  []string `json:"sample,omitempty"`
}

func (ie *IngestError) Error() string {
	return fmt.Sprintf("ingestion failed: %s", ie.Message)
}

func (ie *IngestError) Unwrap() error {
	return ie.Err
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewIngestError(err error, message string) *IngestError {
	return &IngestError{Err: err, Message: message}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTermSetNotFound) ||
		errors.Is(err, ErrAssessmentNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var sve *ValidationError
	return errors.As(err, &sve)
}

// IsIngest checks if error carries ingestion diagnostics
func IsIngest(err error) bool {
	var ie *IngestError
	return errors.As(err, &ie)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTermSetInUse) ||
		errors.Is(err, ErrAssessmentNotEditable)
}
