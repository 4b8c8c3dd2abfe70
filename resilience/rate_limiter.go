package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the limiter in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of requests allowed per second. Default 10.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the bucket size. Default Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// OnLimit is called when a request has to wait or is rejected.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig allows 10 requests per second with bursts of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token bucket shared by every request of a transport.
// Pause holds all requests back, for example while the server asks
// clients to slow down.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu          sync.Mutex
	tokens      float64
	last        time.Time
	pausedUntil time.Time
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = max(int(config.Rate), 1)
	}
	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.last = rl.now()
	return rl
}

// Allow takes a token if one is available now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.reserve(false) > 0 {
		rl.limited()
		return false
	}
	return true
}

// Wait takes a token, blocking until one is available or ctx is done.
// A token reserved by a canceled wait is not returned to the bucket.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	wait := rl.reserve(true)
	if wait > 0 {
		rl.limited()
	}
	rl.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs fn if a token is available and returns ErrRateLimited
// otherwise.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Pause holds every request back for d. Overlapping pauses keep the
// later deadline.
func (rl *RateLimiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if until := rl.now().Add(d); until.After(rl.pausedUntil) {
		rl.pausedUntil = until
	}
}

// Tokens returns the number of tokens available now.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// reserve returns how long the caller must wait for a token. With commit
// the token is taken even when the caller has to wait for it.
func (rl *RateLimiter) reserve(commit bool) time.Duration {
	rl.refill()
	now := rl.now()
	var wait time.Duration
	if rl.pausedUntil.After(now) {
		wait = rl.pausedUntil.Sub(now)
	}
	if rl.tokens < 1 {
		wait = max(wait, time.Duration((1-rl.tokens)/rl.config.Rate*float64(time.Second)))
	}
	if wait == 0 || commit {
		rl.tokens--
	}
	return wait
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.config.Rate
	rl.last = now
	if burst := float64(rl.config.Burst); rl.tokens > burst {
		rl.tokens = burst
	}
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}
