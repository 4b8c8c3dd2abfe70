package resource

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPConfig is the outgoing request as seen by request-side phases.
type HTTPConfig struct {
	Method  string
	URL     string
	Data    any
	Params  map[string]any
	Headers map[string]string
	// Timeout aborts the call once elapsed. Zero disables it.
	Timeout time.Duration
	// Cancel aborts the call when it is closed.
	Cancel <-chan struct{}
}

// Clone returns a copy whose maps can be modified without touching c.
func (c *HTTPConfig) Clone() *HTTPConfig {
	out := *c
	out.Params = cloneParams(c.Params)
	out.Headers = cloneHeaders(c.Headers)
	return &out
}

// Response is a settled transport call.
type Response struct {
	Status  int
	Headers map[string]string
	Data    any
	// OriginalData is the body as received, before unwrapping and
	// deserialization.
	OriginalData any
	Config       *HTTPConfig
}

// HTTPError is a transport rejection. Status is zero for network failures.
type HTTPError struct {
	Status  int
	Data    any
	Headers map[string]string
	Config  *HTTPConfig
	Err     error
}

func (e *HTTPError) Error() string {
	target := ""
	if e.Config != nil {
		target = fmt.Sprintf(" %s %s", e.Config.Method, e.Config.URL)
	}
	if e.Status == 0 {
		return fmt.Sprintf("request%s failed: %v", target, e.Err)
	}
	return fmt.Sprintf("request%s failed with status %d (%s)", target, e.Status, http.StatusText(e.Status))
}

func (e *HTTPError) Unwrap() error { return e.Err }

// Transport dispatches a prepared request. It must honor ctx cancellation.
// Non-2xx responses are returned as *HTTPError.
type Transport interface {
	Do(ctx context.Context, cfg *HTTPConfig) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, cfg *HTTPConfig) (*Response, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
	return f(ctx, cfg)
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func cloneParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
