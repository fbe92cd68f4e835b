package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrMissingParameter
	ErrInvalidStatus
	ErrInvalidTransition
	ErrConflict
	ErrStorage
)

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func MissingParameter(name string) *AppError {
	return &AppError{
		Code:    ErrMissingParameter,
		Message: fmt.Sprintf("%s is required", name),
	}
}

func InvalidStatus(status string) *AppError {
	return &AppError{
		Code:    ErrInvalidStatus,
		Message: fmt.Sprintf("unrecognized status %q", status),
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %q to %q", from, to),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
	}
}

func Storage(err error) *AppError {
	return &AppError{
		Code:    ErrStorage,
		Message: "storage unavailable",
		Err:     err,
	}
}

// Is reports whether err carries the given application error code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
