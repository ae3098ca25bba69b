package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for rating failures. Callers match them with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrReferenceDataNotFound = errors.New("reference data not found")
	ErrOccupationNotFound    = errors.New("occupation not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidReferenceData  = errors.New("invalid reference data")
)

// Reference tables
const (
	TableOccupations   = "occupations"
	TableVariants      = "variants"
	TableImpairments   = "bodypart_impairments"
	TableAgeAdjustment = "age_adjustments"
)

// LookupError reports a reference-data lookup that matched no row
type LookupError struct {
	Table string
	Key   string
}

// NewLookupError creates a LookupError for table and key
func NewLookupError(table, key string) *LookupError {
	return &LookupError{Table: table, Key: key}
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Table == TableOccupations {
		return fmt.Sprintf("occupation not found: %s", e.Key)
	}
	return fmt.Sprintf("no %s row for %s", e.Table, e.Key)
}

// Is matches ErrReferenceDataNotFound for every table, ErrOccupationNotFound
// for the occupations table and the generic ErrNotFound.
func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrReferenceDataNotFound, ErrNotFound:
		return true
	case ErrOccupationNotFound:
		return e.Table == TableOccupations
	}
	return false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeOccupationNotFound    = "OCCUPATION_NOT_FOUND"
	CodeReferenceDataNotFound = "REFERENCE_DATA_NOT_FOUND"
	CodeNotFound              = "NOT_FOUND"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeRateLimit             = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternalServer        = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode classifies err into one of the API error codes
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrOccupationNotFound):
		return CodeOccupationNotFound
	case errors.Is(err, ErrReferenceDataNotFound):
		return CodeReferenceDataNotFound
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternalServer
	}
}
