package logger

import (
	"net/http"
	"strings"
)

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldService   = "service"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldCallID    = "call_id"
	FieldResource  = "resource"
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldPhase     = "phase"
	FieldHeaders   = "headers"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// sensitiveHeaders are masked by RedactHeaders, in canonical form.
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
}

// RedactHeaders returns a copy of headers safe to log: credentials keep
// their scheme and lose the secret.
//
//	Authorization: Bearer eyJhbGciOi...  ->  Authorization: Bearer ***
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if !sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = v
			continue
		}
		if scheme, _, ok := strings.Cut(v, " "); ok {
			out[k] = scheme + " ***"
		} else {
			out[k] = "***"
		}
	}
	return out
}
