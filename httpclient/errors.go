package httpclient

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/resilience"
	"github.com/kbukum/resourcekit/resource"
)

// statusError builds the rejection for a non-2xx response. A body in the
// RFC 7807 shape produced by errors.ErrorResponse keeps its code.
func statusError(status int, data any, headers map[string]string, cfg *resource.HTTPConfig) *resource.HTTPError {
	cause := errors.FromStatus(status)
	if body, ok := data.(map[string]any); ok {
		if appErr, ok := errors.FromResponse(body, status); ok {
			cause = appErr
		}
	}
	return &resource.HTTPError{
		Status:  status,
		Data:    data,
		Headers: headers,
		Config:  cfg,
		Err:     cause,
	}
}

// IsRetryable reports whether a failed attempt may be repeated: network
// failures, 429 and 5xx responses, and retryable AppErrors.
func IsRetryable(err error) bool {
	var httpErr *resource.HTTPError
	if stderrors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 0:
			return resilience.DefaultRetryIf(httpErr.Err)
		case httpErr.Status == http.StatusTooManyRequests:
			return true
		default:
			return httpErr.Status >= http.StatusInternalServerError
		}
	}
	return resilience.DefaultRetryIf(err)
}

// IsStatus reports whether err is a rejection with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *resource.HTTPError
	return stderrors.As(err, &httpErr) && httpErr.Status == status
}

// RetryAfter reads the Retry-After header of a 429 or 503 rejection, in
// either delay-seconds or HTTP-date form.
func RetryAfter(err error) (time.Duration, bool) {
	var httpErr *resource.HTTPError
	if !stderrors.As(err, &httpErr) {
		return 0, false
	}
	if httpErr.Status != http.StatusTooManyRequests && httpErr.Status != http.StatusServiceUnavailable {
		return 0, false
	}
	v := strings.TrimSpace(httpErr.Headers["Retry-After"])
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0), true
	}
	return 0, false
}
