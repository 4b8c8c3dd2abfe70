package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/kbukum/resourcekit/auth/jwt"
	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/resource"
)

type countingSource struct {
	calls       int
	invalidated int
}

func (s *countingSource) Token(context.Context) (string, error) {
	s.calls++
	return "tok", nil
}

func (s *countingSource) Invalidate() { s.invalidated++ }

func newBooks(t *testing.T, ic *resource.Interceptor, status int) (*resource.Resource, *map[string]string) {
	t.Helper()
	seen := map[string]string{}
	transport := resource.TransportFunc(func(_ context.Context, cfg *resource.HTTPConfig) (*resource.Response, error) {
		seen = cfg.Headers
		if status >= 400 {
			return nil, &resource.HTTPError{Status: status, Config: cfg, Err: errors.FromStatus(status)}
		}
		return &resource.Response{Status: status, Data: map[string]any{"book": map[string]any{"id": 1}}}, nil
	})
	books, err := resource.New(resource.Config{
		Name:         "book",
		URL:          "/books",
		Interceptors: []any{ic},
	}, resource.WithTransport(transport), resource.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return books, &seen
}

func TestInterceptor_SetsBearerToken(t *testing.T) {
	books, seen := newBooks(t, NewInterceptor(StaticToken("abc")), http.StatusOK)

	if _, err := books.Get(context.Background(), 1, nil).Result(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := (*seen)["Authorization"]; got != "Bearer abc" {
		t.Errorf("expected 'Bearer abc', got %q", got)
	}
}

func TestInterceptor_CustomHeader(t *testing.T) {
	books, seen := newBooks(t, NewInterceptor(StaticToken("abc"), WithHeader("X-API-Key"), WithScheme("")), http.StatusOK)

	if _, err := books.Get(context.Background(), 1, nil).Result(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := (*seen)["X-API-Key"]; got != "abc" {
		t.Errorf("expected bare token, got %q", got)
	}
}

func TestInterceptor_KeepsCallerHeader(t *testing.T) {
	src := &countingSource{}
	books, seen := newBooks(t, NewInterceptor(src), http.StatusOK)

	_, err := books.Get(context.Background(), 1, nil, resource.WithHeader("Authorization", "Basic xyz")).Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := (*seen)["Authorization"]; got != "Basic xyz" {
		t.Errorf("expected caller header to win, got %q", got)
	}
	if src.calls != 0 {
		t.Errorf("expected no token fetch, got %d", src.calls)
	}
}

func TestInterceptor_InvalidatesOnUnauthorized(t *testing.T) {
	src := &countingSource{}
	books, _ := newBooks(t, NewInterceptor(src), http.StatusUnauthorized)

	_, err := books.Get(context.Background(), 1, nil).Result()
	if !errors.HasCode(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if src.invalidated != 1 {
		t.Errorf("expected cached token to be dropped, got %d", src.invalidated)
	}
}

func TestInterceptor_TokenFailureRejects(t *testing.T) {
	failing := TokenSourceFunc(func(context.Context) (string, error) {
		return "", stderrors.New("issuer down")
	})
	books, seen := newBooks(t, NewInterceptor(failing), http.StatusOK)

	_, err := books.Get(context.Background(), 1, nil).Result()
	if !errors.HasCode(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if len(*seen) != 0 {
		t.Errorf("expected no dispatch, got headers %v", *seen)
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{"disabled", Config{}, true, false},
		{"static token", Config{Enabled: true, Token: "abc"}, false, false},
		{"jwt", Config{Enabled: true, JWT: &jwt.Config{Secret: "s"}}, false, false},
		{"both", Config{Enabled: true, Token: "abc", JWT: &jwt.Config{Secret: "s"}}, true, true},
		{"neither", Config{Enabled: true}, true, true},
		{"invalid jwt", Config{Enabled: true, JWT: &jwt.Config{}}, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ic, err := tc.cfg.Interceptor()
			if tc.wantErr && !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if (ic == nil) != tc.wantNil {
				t.Errorf("expected nil interceptor %v, got %v", tc.wantNil, ic)
			}
		})
	}
}

func TestConfig_JWTInterceptorSignsRequests(t *testing.T) {
	cfg := Config{Enabled: true, JWT: &jwt.Config{Secret: "s3cret", Subject: "books-client"}}
	ic, err := cfg.Interceptor()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	books, seen := newBooks(t, ic, http.StatusOK)
	if _, err := books.Get(context.Background(), 1, nil).Result(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src, _ := jwt.NewSource(&jwt.Config{Secret: "s3cret"})
	header := (*seen)["Authorization"]
	if len(header) < len("Bearer ") {
		t.Fatalf("expected bearer header, got %q", header)
	}
	claims, err := src.Parse(header[len("Bearer "):])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "books-client" {
		t.Errorf("expected subject 'books-client', got %q", claims.Subject)
	}
}
