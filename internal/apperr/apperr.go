// Package apperr defines the error taxonomy shared by the progress engine and its transports.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error
type Code string

const (
	// CodeInvalidArgument marks malformed input rejected before any mutation.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeNotFound marks a missing profile, card or record.
	CodeNotFound Code = "NOT_FOUND"
	// CodePermissionDenied marks an actor acting outside its role.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeRateLimited marks a request refused by the limiter store.
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeInternal marks storage or configuration failures.
	CodeInternal Code = "INTERNAL"
)

// Error is a structured error carrying a Code
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidArgument creates a validation error.
func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied creates a permission error.
func PermissionDenied(format string, args ...interface{}) *Error {
	return &Error{Code: CodePermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// RateLimited creates a rate limit error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// Wrap wraps cause with a code and message.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// CodeOf extracts the code of the first *Error in err's chain.
// Errors outside the taxonomy are reported as CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries code
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
