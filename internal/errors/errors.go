package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeFileNotFound  = "FILE_NOT_FOUND"
	CodeSchemaError   = "SCHEMA_ERROR"
	CodeEmptyResult   = "EMPTY_RESULT"
	CodeInternalError = "INTERNAL_ERROR"
)

// Common error constructors

// ConfigInvalid reports a missing, unrecognized, mutually-exclusive or
// malformed configuration field.
func ConfigInvalid(format string, args ...interface{}) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf(format, args...))
}

// FileNotFound reports a data, feature or subset file that could not be
// resolved from the configured path.
func FileNotFound(path string) *AppError {
	return New(CodeFileNotFound, fmt.Sprintf("file not found: %s", path))
}

// SchemaError reports a structural problem with the data: an expected column
// is absent, identifiers are duplicated, or feature names collide.
func SchemaError(format string, args ...interface{}) *AppError {
	return New(CodeSchemaError, fmt.Sprintf(format, args...))
}

// EmptyResult reports a filtering stage that left zero rows or candidates.
// Distinct from SchemaError: the data content, not its structure, is the problem.
func EmptyResult(format string, args ...interface{}) *AppError {
	return New(CodeEmptyResult, fmt.Sprintf(format, args...))
}
