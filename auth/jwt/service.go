// Package jwt signs and verifies the JSON Web Tokens that authenticate
// outgoing resource requests.
//
// A Source issues service tokens from a Config and caches them until shortly
// before they expire:
//
//	src, err := jwt.NewSource(&jwt.Config{Secret: "s3cret", Subject: "books-client"})
//	books.AddInterceptor(auth.NewInterceptor(src))
//
// Service is parameterized by a claims type T for callers that need custom
// claims:
//
//	svc, err := jwt.NewService(cfg, func() *MyClaims { return &MyClaims{} })
//	token, err := svc.Generate(&MyClaims{...})
//	claims, err := svc.Parse(token)
package jwt

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/resourcekit/errors"
)

// RegisteredClaims are the standard claims issued by a Source.
type RegisteredClaims = gojwt.RegisteredClaims

// Service provides JWT token generation and parsing for custom claims type T.
// T must implement jwt.Claims (e.g., by embedding jwt.RegisteredClaims).
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
}

// NewService creates a new JWT service.
// The newEmpty function returns a zero-value instance of T for parsing.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: *cfg, newEmpty: newEmpty}, nil
}

// Generate creates a signed JWT token from the given claims.
func (s *Service[T]) Generate(claims T) (string, error) {
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString(s.cfg.signKey())
	if err != nil {
		return "", errors.Internal(fmt.Errorf("jwt: sign token: %w", err))
	}
	return signed, nil
}

// Parse validates and parses a JWT token string into claims of type T.
// It verifies the signature, expiry, and optionally issuer/audience.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, errors.New(errors.ErrCodeUnauthorized, "jwt: invalid token", http.StatusUnauthorized).WithCause(err)
	}
	parsed, ok := token.Claims.(T)
	if !ok || !token.Valid {
		return zero, errors.New(errors.ErrCodeUnauthorized, "jwt: invalid token", http.StatusUnauthorized)
	}
	return parsed, nil
}

// keyFunc is the jwt.Keyfunc used during token parsing.
func (s *Service[T]) keyFunc(token *gojwt.Token) (any, error) {
	expected := s.cfg.signingMethod()
	if token.Method.Alg() != expected.Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return s.cfg.verifyKey(), nil
}

// parserOptions returns jwt.ParserOption based on config.
func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience[0]))
	}
	return opts
}

// Source issues tokens with the configured registered claims. A token is
// reused until RefreshBefore ahead of its expiry.
type Source struct {
	svc *Service[*RegisteredClaims]
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSource creates a Source from cfg.
func NewSource(cfg *Config) (*Source, error) {
	svc, err := NewService(cfg, func() *RegisteredClaims { return &RegisteredClaims{} })
	if err != nil {
		return nil, err
	}
	return &Source{svc: svc, now: time.Now}, nil
}

// Token returns the cached token or signs a new one.
func (s *Source) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-s.svc.cfg.RefreshBefore)) {
		return s.token, nil
	}
	cfg := s.svc.cfg
	expires := now.Add(cfg.TokenTTL)
	token, err := s.svc.Generate(&RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    cfg.Issuer,
		Subject:   cfg.Subject,
		Audience:  cfg.Audience,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(expires),
	})
	if err != nil {
		return "", err
	}
	s.token, s.expires = token, expires
	return token, nil
}

// Invalidate drops the cached token.
func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Parse verifies a token issued by this source.
func (s *Source) Parse(token string) (*RegisteredClaims, error) {
	return s.svc.Parse(token)
}
