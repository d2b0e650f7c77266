// Package errors defines the error taxonomy for the character builder.
//
// Data errors (bad selections, unresolved items, failed validation) are
// recoverable and carry a Code so callers can branch without string matching.
// Programmer errors (an unwired action, a nil dependency) use CodeInternal and
// indicate a wiring bug rather than a user mistake.
package errors

import (
	"errors"
	"fmt"
)

// Code categorizes an error.
type Code string

const (
	// CodeUnknown indicates an uncategorized error.
	CodeUnknown Code = "unknown"

	// CodeInvalidArgument indicates the caller supplied a bad argument.
	CodeInvalidArgument Code = "invalid_argument"

	// CodeNotFound indicates a referenced resource does not exist.
	CodeNotFound Code = "not_found"

	// CodeAlreadyExists indicates an attempt to create a duplicate resource.
	CodeAlreadyExists Code = "already_exists"

	// CodeValidation indicates a rule or invariant check rejected the input.
	CodeValidation Code = "validation"

	// CodeInternal indicates a programmer error or broken invariant.
	CodeInternal Code = "internal"

	// CodeUnavailable indicates a collaborator (store, content source) is down.
	CodeUnavailable Code = "unavailable"
)

// Error is the application error type carrying a code and metadata.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta attaches a key/value pair to the error and returns it.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a message, preserving the code of a wrapped *Error.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(appErr.Meta),
		}
	}

	return &Error{Code: CodeUnknown, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// NotFound creates a not-found error.
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// NotFoundf creates a formatted not-found error.
func NotFoundf(format string, args ...any) *Error { return Newf(CodeNotFound, format, args...) }

// InvalidArgument creates an invalid-argument error.
func InvalidArgument(message string) *Error { return New(CodeInvalidArgument, message) }

// InvalidArgumentf creates a formatted invalid-argument error.
func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// AlreadyExists creates an already-exists error.
func AlreadyExists(message string) *Error { return New(CodeAlreadyExists, message) }

// AlreadyExistsf creates a formatted already-exists error.
func AlreadyExistsf(format string, args ...any) *Error {
	return Newf(CodeAlreadyExists, format, args...)
}

// Validation creates a validation error.
func Validation(message string) *Error { return New(CodeValidation, message) }

// Validationf creates a formatted validation error.
func Validationf(format string, args ...any) *Error { return Newf(CodeValidation, format, args...) }

// Internal creates an internal error. Reserve this for wiring bugs.
func Internal(message string) *Error { return New(CodeInternal, message) }

// Internalf creates a formatted internal error.
func Internalf(format string, args ...any) *Error { return Newf(CodeInternal, format, args...) }

// Unavailable creates an unavailable error.
func Unavailable(message string) *Error { return New(CodeUnavailable, message) }

// Unavailablef creates a formatted unavailable error.
func Unavailablef(format string, args ...any) *Error { return Newf(CodeUnavailable, format, args...) }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsAlreadyExists reports whether err is an already-exists error.
func IsAlreadyExists(err error) bool { return Is(err, CodeAlreadyExists) }

// IsInvalidArgument reports whether err is an invalid-argument error.
func IsInvalidArgument(err error) bool { return Is(err, CodeInvalidArgument) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Is(err, CodeValidation) }

// IsInternal reports whether err is an internal error.
func IsInternal(err error) bool { return Is(err, CodeInternal) }

// GetCode extracts the code from err, defaulting to CodeUnknown.
func GetCode(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMeta extracts the metadata from err, if any.
func GetMeta(err error) map[string]any {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Meta
	}
	return nil
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}
