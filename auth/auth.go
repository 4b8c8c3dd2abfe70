package auth

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/resource"
)

// InterceptorName is the Name of interceptors returned by NewInterceptor.
const InterceptorName = "auth"

// TokenSource supplies the credential attached to outgoing requests.
//
// Implementations:
//   - jwt.Source signs and caches service tokens
//   - StaticToken returns a fixed token
//   - TokenSourceFunc adapts a function
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts an ordinary function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}

// invalidator is implemented by sources that cache tokens.
type invalidator interface {
	Invalidate()
}

// Option configures NewInterceptor.
type Option func(*interceptor)

// WithHeader sets the header carrying the token. Default "Authorization".
func WithHeader(name string) Option {
	return func(i *interceptor) { i.header = name }
}

// WithScheme sets the prefix written before the token. Default "Bearer";
// an empty scheme sends the bare token.
func WithScheme(scheme string) Option {
	return func(i *interceptor) { i.scheme = scheme }
}

type interceptor struct {
	src    TokenSource
	header string
	scheme string
}

// NewInterceptor returns an interceptor that sets the token from src on
// every request in the request phase. A header set by the caller is kept.
// When the server answers 401 and src caches tokens, the cached token is
// dropped so the next call fetches a new one.
func NewInterceptor(src TokenSource, opts ...Option) *resource.Interceptor {
	i := &interceptor{src: src, header: "Authorization", scheme: "Bearer"}
	for _, opt := range opts {
		opt(i)
	}
	return &resource.Interceptor{
		Name:                InterceptorName,
		Request:             i.request,
		BeforeResponseError: i.responseError,
	}
}

func (i *interceptor) request(v any, call *resource.Call) (any, error) {
	cfg, ok := v.(*resource.HTTPConfig)
	if !ok {
		return nil, nil
	}
	if _, set := cfg.Headers[i.header]; set {
		return cfg, nil
	}
	token, err := i.src.Token(call.Context())
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnauthorized, "unable to obtain access token", http.StatusUnauthorized).WithCause(err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if i.scheme != "" {
		token = i.scheme + " " + token
	}
	cfg.Headers[i.header] = token
	return cfg, nil
}

func (i *interceptor) responseError(err error, _ *resource.Call) (any, error) {
	var httpErr *resource.HTTPError
	if stderrors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
		if inv, ok := i.src.(invalidator); ok {
			inv.Invalidate()
		}
	}
	return nil, err
}
