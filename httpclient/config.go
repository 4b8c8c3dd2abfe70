package httpclient

import (
	"time"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/resilience"
	"github.com/kbukum/resourcekit/validation"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the HTTP transport.
type Config struct {
	// BaseURL is prepended to relative request URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds a single attempt. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are sent with every request. Request headers win.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// H2C speaks cleartext HTTP/2 with prior knowledge.
	H2C bool `yaml:"h2c" mapstructure:"h2c"`

	// Auth is applied to every request.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`

	// Bulkhead caps the number of requests in flight. Nil disables it.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retry != nil {
		if c.Retry.RetryIf == nil {
			c.Retry.RetryIf = IsRetryable
		}
		if c.Retry.RetryAfter == nil {
			c.Retry.RetryAfter = RetryAfter
		}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	v := validation.New().Merge(validation.Validate(c))
	if c.Auth != nil {
		v.Merge(c.Auth.validate())
	}
	if err := v.Validate(); err != nil {
		return errors.InvalidConfig("httpclient: " + err.Message).WithDetails(err.Details)
	}
	return nil
}

// DefaultRetryConfig returns a retry config that retries network failures,
// 429 and 5xx responses and honors Retry-After.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	cfg.RetryAfter = RetryAfter
	return &cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
