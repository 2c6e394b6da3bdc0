package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a remote API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New builds a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err carries a retryable type.
func IsTransient(err error) bool {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return IsRetryable(apiErr.Type)
	}
	return false
}

// IsForbidden reports whether err is a permanent access denial.
func IsForbidden(err error) bool {
	return Is(err, ErrorTypeForbidden)
}

// Is reports whether err carries the given type.
func Is(err error, t ErrorType) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == t
}

// TypeForStatus maps an HTTP status code to an error type. 2xx and 3xx map to "".
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode < 400:
		return ""
	case statusCode == http.StatusUnauthorized:
		return ErrorTypeAuth
	case statusCode == http.StatusForbidden:
		return ErrorTypeForbidden
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
