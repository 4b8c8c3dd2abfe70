package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"net/http"
)

// AppError is the error type of the client.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Retryable reports whether repeating the operation may succeed.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status the remote API answered with, or the status
	// closest to a local failure.
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any *AppError with the same code, so
// errors.Is(err, &AppError{Code: ErrCodeAborted}) works through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithCause sets Cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New creates an AppError whose retryability follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

func newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...), StatusOf(code))
}

// Timeout reports that operation ran out of time.
func Timeout(operation string) *AppError {
	return newf(ErrCodeTimeout, "%s timed out", operation).WithDetail("operation", operation)
}

// Aborted reports that the caller canceled operation.
func Aborted(operation string) *AppError {
	return newf(ErrCodeAborted, "%s was aborted", operation).WithDetail("operation", operation)
}

// ConnectionFailed reports a request that never reached host.
func ConnectionFailed(host string) *AppError {
	return newf(ErrCodeConnectionFailed, "unable to connect to %s", host).WithDetail("service", host)
}

// InvalidResponse reports a response body that could not be decoded.
func InvalidResponse(cause error) *AppError {
	return newf(ErrCodeInvalidResponse, "response body could not be decoded").WithCause(cause)
}

// NotFound reports a missing record. An empty id is left out of Details.
func NotFound(resource, id string) *AppError {
	err := newf(ErrCodeNotFound, "%s not found", resource).WithDetail("resource", resource)
	if id != "" {
		err.Details["id"] = id
	}
	return err
}

// InvalidConfig reports configuration the client cannot use.
func InvalidConfig(reason string) *AppError {
	return newf(ErrCodeInvalidConfig, "%s", reason)
}

// UnresolvedDependency reports a name the resolver does not know. kind
// says what was looked up, e.g. "interceptor".
func UnresolvedDependency(kind, name string) *AppError {
	return newf(ErrCodeUnresolvedDependency, "unable to resolve %s %q", kind, name).
		WithDetails(map[string]any{"kind": kind, "name": name})
}

// InvalidInput reports a bad argument. An empty field is left out of Details.
func InvalidInput(field, reason string) *AppError {
	err := newf(ErrCodeInvalidInput, "invalid input: %s", reason)
	if field != "" {
		err.WithDetail("field", field)
	}
	return err
}

// Validation reports failed validation with a prepared message.
func Validation(message string) *AppError {
	return newf(ErrCodeInvalidInput, "%s", message)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return newf(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

var statusCodes = map[int]ErrorCode{
	http.StatusUnauthorized:       ErrCodeUnauthorized,
	http.StatusForbidden:          ErrCodeForbidden,
	http.StatusNotFound:           ErrCodeNotFound,
	http.StatusConflict:           ErrCodeConflict,
	http.StatusTooManyRequests:    ErrCodeRateLimited,
	http.StatusServiceUnavailable: ErrCodeServiceUnavailable,
}

// FromStatus maps a status answered by the remote API to an AppError. It
// returns nil for 2xx. Other 4xx map to INVALID_INPUT and everything else
// to EXTERNAL_SERVICE_ERROR.
func FromStatus(status int) *AppError {
	if status >= 200 && status < 300 {
		return nil
	}
	code, ok := statusCodes[status]
	switch {
	case ok:
	case status >= 400 && status < 500:
		code = ErrCodeInvalidInput
	default:
		code = ErrCodeExternalService
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return New(code, msg, status)
}

// Wrap returns the first AppError in err's chain, or err wrapped as Internal.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsAppError reports whether err's chain holds an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
