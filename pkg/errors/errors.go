package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the class of failure reported by a component
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeRetriesExceeded ErrorType = "retries_exceeded"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeParsing         ErrorType = "parsing"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeUpstream        ErrorType = "upstream"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error is a typed error carrying an optional HTTP status code and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Type) + " error"
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports bad input to an entry point
func Validation(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, format, args...)
}

// NotFound reports that the requested account does not exist upstream
func NotFound(what string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: what, Code: 404}
}

// RetriesExceeded reports that the retry ceiling was reached
func RetriesExceeded(attempts int, last error) *Error {
	return &Error{
		Type:    ErrorTypeRetriesExceeded,
		Message: fmt.Sprintf("gave up after %d attempts", attempts),
		Err:     last,
	}
}

// TypeOf returns the type of the first typed error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

func IsNotFound(err error) bool        { return err != nil && TypeOf(err) == ErrorTypeNotFound }
func IsRateLimited(err error) bool     { return err != nil && TypeOf(err) == ErrorTypeRateLimit }
func IsRetriesExceeded(err error) bool { return err != nil && TypeOf(err) == ErrorTypeRetriesExceeded }
func IsValidation(err error) bool      { return err != nil && TypeOf(err) == ErrorTypeValidation }

// IsRetryable checks if an error type should be retried.
// Only throttling is transient; every other upstream failure ends the run.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// FromStatusCode maps an upstream HTTP status to a typed error
func FromStatusCode(code int, message string) *Error {
	t := ErrorTypeUpstream
	switch {
	case code == 404:
		t = ErrorTypeNotFound
	case code == 429:
		t = ErrorTypeRateLimit
	case code == 401 || code == 403:
		t = ErrorTypeAuth
	case code >= 500:
		t = ErrorTypeServerError
	}
	return &Error{Type: t, Message: message, Code: code}
}
