// Package errors defines the application error taxonomy shared by the sensemaker services.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data or a violated input contract.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUnsupported indicates input outside the recognised set (e.g., an unknown resource type).
	ErrCodeUnsupported ErrorCode = "unsupported"
	// ErrCodeForeignKey indicates a foreign key constraint violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// Sentinels wrapped by AppErrors so callers can match the precise condition with errors.Is.
var (
	// ErrUnrecognizedResource is the cause of every unsupported-resource error.
	ErrUnrecognizedResource = errors.New("unrecognized resource")
	// ErrOpenEndedOnly is the cause when a poll question is accessed directly but is not open-ended.
	ErrOpenEndedOnly = errors.New("only supported for open-ended questions")
	// ErrNotPublishable is the cause when publishing a job that is not finished cleanly with outputs.
	ErrNotPublishable = errors.New("job is not publishable")
)

// AppError carries a code callers branch on, a message, an optional cause and, for input
// errors, the offending field.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// UnrecognizedResource reports a resource type outside the supported enumeration.
func UnrecognizedResource(resourceType string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("resource type %q", resourceType),
		Cause:   ErrUnrecognizedResource,
		Field:   "analysable_type",
	}
}

// OpenEndedOnly reports direct access to a poll question that is not open-ended.
func OpenEndedOnly(questionID int64) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("poll question %d", questionID),
		Cause:   ErrOpenEndedOnly,
		Field:   "analysable_id",
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsAppError reports whether err is (or wraps) an AppError with the given code.
func IsAppError(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return IsAppError(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return IsAppError(err, ErrCodeValidation)
}

// IsUnsupported checks if an error is an Unsupported error.
func IsUnsupported(err error) bool {
	return IsAppError(err, ErrCodeUnsupported)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
