package domain

import (
	"errors"
	"fmt"
)

// Error codes for categorization
const (
	ErrCodeMalformedStep = "MALFORMED_STEP"
	ErrCodeSnapshot      = "SNAPSHOT_FAILED"
	ErrCodeHintLookup    = "HINT_LOOKUP_FAILED"
	ErrCodeSchemaInvalid = "SCHEMA_INVALID"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
)

// DomainError is a structured error for extraction operations
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
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

// Is implements errors.Is for error comparison
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel domain errors (used with errors.Is)
var (
	ErrMalformedStepVal = &DomainError{Code: ErrCodeMalformedStep, Message: "malformed step"}
	ErrSnapshotVal      = &DomainError{Code: ErrCodeSnapshot, Message: "snapshot failed"}
	ErrSchemaInvalidVal = &DomainError{Code: ErrCodeSchemaInvalid, Message: "schema invalid"}
	ErrNotFoundVal      = &DomainError{Code: ErrCodeNotFound, Message: "not found"}
)

// IsSentinelError checks if err matches a sentinel error
func IsSentinelError(err error, sentinel *DomainError) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == sentinel.Code
	}
	return false
}

// MalformedStepError creates a structural error for an unrecognized step name
func MalformedStepError(step string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMalformedStep,
		Message: fmt.Sprintf("unrecognized step: %q", step),
		Details: map[string]any{"step": step},
		Err:     ErrMalformedStepVal,
	}
}

// SnapshotError creates an error for a failed page snapshot
func SnapshotError(step string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeSnapshot,
		Message: fmt.Sprintf("snapshot failed for step %q", step),
		Details: map[string]any{"step": step},
		Err:     err,
	}
}

// SchemaInvalidError creates an error for a generated schema that failed
// structural self-validation
func SchemaInvalidError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeSchemaInvalid,
		Message: "generated schema failed structural validation",
		Err:     err,
	}
}
