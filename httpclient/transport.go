package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/observability"
	"github.com/kbukum/resourcekit/resilience"
	"github.com/kbukum/resourcekit/resource"
	"github.com/kbukum/resourcekit/version"
)

// Transport dispatches resource requests over HTTP. Bodies are sent and
// received as JSON.
type Transport struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	bh         *resilience.Bulkhead
	log        *logger.Logger
}

var (
	_ resource.Transport          = (*Transport)(nil)
	_ observability.HealthChecker = (*Transport)(nil)
)

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

// WithLogger sets the logger used for retry and failure logs.
func WithLogger(l *logger.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// New creates a transport with the given configuration.
func New(cfg Config, opts ...Option) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var rt http.RoundTripper
	if cfg.H2C {
		rt = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	t := &Transport{
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		log:    logger.Get("httpclient"),
	}

	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.IsFailure == nil {
			cb.IsFailure = IsRetryable
		}
		t.cb = resilience.NewCircuitBreaker(cb)
	}
	if cfg.RateLimiter != nil {
		t.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		t.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}

	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Do sends cfg and decodes the response body. Non-2xx responses are
// returned as *resource.HTTPError.
func (t *Transport) Do(ctx context.Context, cfg *resource.HTTPConfig) (*resource.Response, error) {
	if t.config.Retry == nil {
		return t.doOnce(ctx, cfg)
	}
	retry := *t.config.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			t.log.Debug("retrying request", logger.Fields(
				logger.FieldMethod, cfg.Method,
				logger.FieldURL, cfg.URL,
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				"backoff_ms", backoff.Milliseconds(),
			))
		}
	}
	return resilience.Retry(ctx, retry, func() (*resource.Response, error) {
		return t.doOnce(ctx, cfg)
	})
}

// Unwrap returns the underlying *http.Client.
func (t *Transport) Unwrap() *http.Client {
	return t.httpClient
}

// doOnce runs one attempt through the rate limiter, the bulkhead and the
// circuit breaker. A 429 pauses the rate limiter for the delay the server
// asked for.
func (t *Transport) doOnce(ctx context.Context, cfg *resource.HTTPConfig) (*resource.Response, error) {
	if t.rl != nil {
		if err := t.rl.Wait(ctx); err != nil {
			return nil, err
		}
	}

	execute := func() (*resource.Response, error) {
		if t.cb == nil {
			return t.execute(ctx, cfg)
		}
		var resp *resource.Response
		err := t.cb.Execute(func() error {
			var err error
			resp, err = t.execute(ctx, cfg)
			return err
		})
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			return nil, errors.New(errors.ErrCodeServiceUnavailable, err.Error(), http.StatusServiceUnavailable).WithCause(err)
		}
		return resp, err
	}

	var resp *resource.Response
	var err error
	if t.bh != nil {
		resp, err = resilience.ExecuteWithResult(t.bh, ctx, execute)
	} else {
		resp, err = execute()
	}
	if t.rl != nil && IsStatus(err, http.StatusTooManyRequests) {
		if d, ok := RetryAfter(err); ok {
			t.rl.Pause(d)
		}
	}
	return resp, err
}

func (t *Transport) execute(ctx context.Context, cfg *resource.HTTPConfig) (*resource.Response, error) {
	req, err := t.buildRequest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &resource.HTTPError{Config: cfg, Err: errors.ConnectionFailed(req.URL.Host).WithCause(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &resource.HTTPError{Config: cfg, Err: errors.ConnectionFailed(req.URL.Host).WithCause(err)}
	}

	headers := flattenHeaders(resp.Header)
	data, err := decodeBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, &resource.HTTPError{Status: resp.StatusCode, Headers: headers, Config: cfg, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, data, headers, cfg)
	}
	return &resource.Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Data:    data,
		Config:  cfg,
	}, nil
}

// buildRequest constructs an *http.Request from the transport config and cfg.
func (t *Transport) buildRequest(ctx context.Context, cfg *resource.HTTPConfig) (*http.Request, error) {
	target := cfg.URL
	if t.config.BaseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(t.config.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}

	body, contentType, err := encodeBody(cfg.Data)
	if err != nil {
		return nil, errors.InvalidInput("data", fmt.Sprintf("encode body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, target, body)
	if err != nil {
		return nil, errors.InvalidInput("url", fmt.Sprintf("create request: %v", err))
	}

	if len(cfg.Params) > 0 {
		q := req.URL.Query()
		for k, vs := range queryValues(cfg.Params) {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	t.config.Auth.apply(req)
	return req, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// decodeBody returns nil for an empty body, the decoded value for JSON and
// the raw text otherwise.
func decodeBody(contentType string, body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	isJSON := strings.Contains(contentType, "json")
	if !isJSON && contentType == "" {
		isJSON = trimmed[0] == '{' || trimmed[0] == '['
	}
	if !isJSON {
		return string(body), nil
	}
	var out any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, errors.InvalidResponse(err)
	}
	return out, nil
}

// queryValues flattens params into query values. Slices repeat the key and
// nil values are dropped.
func queryValues(params map[string]any) url.Values {
	out := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				out.Add(k, fmt.Sprint(rv.Index(i).Interface()))
			}
			continue
		}
		out.Add(k, fmt.Sprint(v))
	}
	return out
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// CheckHealth reports the circuit breaker state: up when closed or absent,
// degraded when half-open and down when open.
func (t *Transport) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{
		Name:    "httpclient",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"base_url": t.config.BaseURL},
	}
	if t.cb == nil {
		return h
	}
	state := t.cb.State()
	h.Details["circuit"] = state.String()
	switch state {
	case resilience.StateOpen:
		h.Status = observability.HealthStatusDown
		h.Message = "circuit breaker open"
	case resilience.StateHalfOpen:
		h.Status = observability.HealthStatusDegraded
		h.Message = "circuit breaker half-open"
	}
	return h
}
