package errors

import (
	"fmt"
)

// RecallError is the structured error type for Recall.
// It carries a stable code, a classification, and the underlying cause
// so callers can decide between surfacing and local recovery.
type RecallError struct {
	// Code is the unique error code (e.g., "ERR_301_INVALID_INPUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *RecallError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RecallError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *RecallError) Is(target error) bool {
	if t, ok := target.(*RecallError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RecallError) WithDetail(key, value string) *RecallError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RecallError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *RecallError {
	return &RecallError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a RecallError from an existing error.
// The error's message becomes the RecallError message.
func Wrap(code string, err error) *RecallError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates an error for bad caller-supplied arguments.
// Validation errors are surfaced to the caller and never retried.
func ValidationError(message string, cause error) *RecallError {
	return New(ErrCodeInvalidInput, message, cause)
}

// StorageError creates an error for collaborator I/O failures.
func StorageError(message string, cause error) *RecallError {
	return New(ErrCodeStoreWrite, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RecallError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RecallError {
	return New(ErrCodeInternal, message, cause)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// IsStorage reports whether err is a storage error.
func IsStorage(err error) bool {
	return GetCategory(err) == CategoryStorage
}

// GetCode extracts the error code from a RecallError.
// Returns empty string if not a RecallError.
func GetCode(err error) string {
	if re, ok := err.(*RecallError); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RecallError.
// Returns empty string if not a RecallError.
func GetCategory(err error) Category {
	if re, ok := err.(*RecallError); ok {
		return re.Category
	}
	return ""
}
