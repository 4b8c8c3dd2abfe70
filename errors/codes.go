package errors

import "net/http"

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Failures on the way to the remote API. All of them may be retried.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Failures of a single operation.
const (
	// ErrCodeAborted marks an operation canceled through its task.
	ErrCodeAborted ErrorCode = "ABORTED"
	// ErrCodeInvalidResponse marks a body the serializer could not decode.
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// Failures inside the client.
const (
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeUnresolvedDependency marks an interceptor, serializer or
	// extension name the resolver does not know.
	ErrCodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable:   {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:     {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:              {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:          {http.StatusTooManyRequests, true},
	ErrCodeExternalService:      {http.StatusBadGateway, true},
	ErrCodeAborted:              {499, false},
	ErrCodeInvalidResponse:      {http.StatusBadGateway, false},
	ErrCodeNotFound:             {http.StatusNotFound, false},
	ErrCodeConflict:             {http.StatusConflict, false},
	ErrCodeUnauthorized:         {http.StatusUnauthorized, false},
	ErrCodeForbidden:            {http.StatusForbidden, false},
	ErrCodeInvalidInput:         {http.StatusBadRequest, false},
	ErrCodeInvalidConfig:        {http.StatusInternalServerError, false},
	ErrCodeUnresolvedDependency: {http.StatusInternalServerError, false},
	ErrCodeInternal:             {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether failures with code may be retried.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// StatusOf returns the HTTP status usually paired with code, or 500 for
// unknown codes.
func StatusOf(code ErrorCode) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
