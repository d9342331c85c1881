package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the core. Every failure that reaches a caller carries one of these.
const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeStorageWrite     = "STORAGE_WRITE_ERROR"
	CodeStorageRead      = "STORAGE_READ_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeTransient        = "TRANSIENT_NETWORK_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports an absent post, comment, group or membership row.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewStorageWriteError wraps a failed put to the object store.
func NewStorageWriteError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageWrite,
		Message: "Could not write media object",
		Err:     err,
	}
}

// NewStorageReadError wraps a failed read or URL resolution against the object store.
func NewStorageReadError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageRead,
		Message: "Could not read media object",
		Err:     err,
	}
}

// NewTransientError wraps a call that did not complete.
func NewTransientError(err error) *AppError {
	return &AppError{
		Code:    CodeTransient,
		Message: "Request did not complete",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
