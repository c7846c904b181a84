// Package retry computes backoff delays for failed sync operations and
// guards failing remotes with a per-service circuit breaker.
package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mkravets/offsync/internal/gateway"
)

// Config tunes the backoff policy.
type Config struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter is the fraction of the computed delay used as the uniform
	// jitter range, 0..1. Spreads retries so queued operations do not
	// stampede the remote in lockstep.
	Jitter     float64
	MaxRetries int
}

// DefaultConfig returns the standard policy: 1s base doubling to 5m,
// 20% jitter, 5 attempts.
func DefaultConfig() Config {
	return Config{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Minute,
		Multiplier: 2.0,
		Jitter:     0.2,
		MaxRetries: 5,
	}
}

// Policy computes delays and retry decisions.
type Policy struct {
	cfg Config

	mu   sync.Mutex
	rand *rand.Rand
}

// NewPolicy validates cfg and returns a policy.
func NewPolicy(cfg Config) *Policy {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Minute
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}

	return &Policy{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxRetries returns the configured retry ceiling.
func (p *Policy) MaxRetries() int {
	return p.cfg.MaxRetries
}

// Delay returns the backoff for the given attempt (1-based):
// min(maxDelay, base * multiplier^(attempt-1)) ± jitter.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.baseDelay(attempt)
	if p.cfg.Jitter == 0 {
		return base
	}

	p.mu.Lock()
	offset := (p.rand.Float64()*2 - 1) * p.cfg.Jitter * float64(base)
	p.mu.Unlock()

	delay := time.Duration(float64(base) + offset)
	if delay < 0 {
		delay = 0
	}
	return delay
}

// baseDelay is the deterministic component of Delay, exposed for the
// monotonic-growth property.
func (p *Policy) baseDelay(attempt int) time.Duration {
	delay := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if delay > float64(p.cfg.MaxDelay) {
		return p.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt is allowed. Permanent and
// conflict failures are never retried here regardless of remaining budget;
// conflicts take the resolver path instead. attempt is the dispatch that
// just failed, so MaxRetries bounds total dispatches, not retries on top
// of the first send.
func (p *Policy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.cfg.MaxRetries {
		return false
	}

	switch gateway.KindOf(err) {
	case gateway.KindPermanent, gateway.KindConflict:
		return false
	default:
		return true
	}
}
