package errors

import "fmt"

// Kind classifies a failed API call so callers can decide whether to retry
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnection        Kind = "connection"
	KindTransientServer   Kind = "transient_server"
	KindHTTPClient        Kind = "http_client"
	KindMalformedResponse Kind = "malformed_response"
	KindAPI               Kind = "api"
)

// Error represents a classified API error
type Error struct {
	Kind    Kind
	Message string
	// Code is the HTTP status, or 0 when no response was received
	Code int
	// ResultCode is the envelope resultCode for KindAPI errors
	ResultCode string
}

func (e *Error) Error() string {
	if e.ResultCode != "" {
		return fmt.Sprintf("%s error (result %s): %s", e.Kind, e.ResultCode, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New creates a classified error
func New(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindTimeout, KindConnection, KindTransientServer:
		return true
	case KindHTTPClient, KindMalformedResponse, KindAPI:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient server condition
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return statusCode >= 500
	}
}
