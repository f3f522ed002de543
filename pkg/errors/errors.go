package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// ErrUnknown is the fallback for errors produced outside this package
	ErrUnknown ErrorCode = "UNKNOWN"

	// ErrInternal marks invariant violations, e.g. a cache entry the
	// installer was pointed at that does not exist. These are defects,
	// never user errors.
	ErrInternal ErrorCode = "INTERNAL"

	// ErrConfig covers malformed item definitions, bad version-probe
	// output and unresolvable command templates
	ErrConfig ErrorCode = "CONFIG_INVALID"

	// ErrArtifactExists is raised when an operation would clobber an
	// existing cache or target entry and --force was not given
	ErrArtifactExists ErrorCode = "ARTIFACT_EXISTS"

	// ErrTransport means an external upload/download/archive/probe
	// command exited non-zero or could not be started
	ErrTransport ErrorCode = "TRANSPORT_FAILURE"

	// ErrNotFound means a local source path is missing at publish time
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrUnsupportedType covers sources that are neither file nor
	// directory, and hardlink requests against directories
	ErrUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrFileAccess covers plumbing-level filesystem failures
	ErrFileAccess ErrorCode = "FILE_ACCESS"
)

// AppError represents a structured error with code and details
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *AppError) Is(target error) bool {
	var targetErr *AppError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new AppError with the given code and message
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an AppError
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown
}
