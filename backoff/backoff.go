// Package backoff provides retry delay strategies and the shared retry
// classification used by provider dispatch, webhook delivery and storage
// downloads. Everything here is stateless and safe for concurrent use.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// IsRetryableHTTPStatus reports whether a response status is worth
// retrying: 408, 429 and every 5xx.
func IsRetryableHTTPStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

// ExponentialDelay returns min(base * 2^(attempt-1), maxDelay). Attempts
// below 1 are treated as 1. A non-positive maxDelay disables the cap.
func ExponentialDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if maxDelay > 0 && d > float64(maxDelay) {
		return maxDelay
	}
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear increases the delay linearly with the attempt number.
// Delay = min(Initial * attempt, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	d := l.Initial * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// Exponential doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return ExponentialDelay(attempt, e.Initial, e.Max)
}

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(attempt-1), Max)].
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	base := ExponentialDelay(attempt, e.Initial, e.Max)
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// SymmetricJitter spreads another strategy's delay by up to ±Fraction of
// its value, then caps the result at Max when Max is positive.
type SymmetricJitter struct {
	Base     Strategy
	Fraction float64
	Max      time.Duration
}

// NewSymmetricJitter wraps base with ±fraction jitter and a hard cap.
func NewSymmetricJitter(base Strategy, fraction float64, maxDelay time.Duration) *SymmetricJitter {
	return &SymmetricJitter{Base: base, Fraction: fraction, Max: maxDelay}
}

// Delay returns Base.Delay(attempt) * (1 ± Fraction), capped at Max.
func (s *SymmetricJitter) Delay(attempt int) time.Duration {
	d := float64(s.Base.Delay(attempt))
	spread := (rand.Float64()*2 - 1) * s.Fraction //nolint:gosec // jitter intentionally uses non-crypto rand
	out := time.Duration(d * (1 + spread))
	if out < 0 {
		out = 0
	}
	if s.Max > 0 && out > s.Max {
		return s.Max
	}
	return out
}

// WebhookStrategy is the delay schedule for outbound webhook retries:
// exponential from base*multiplier with ±10% jitter, capped at 30 minutes.
func WebhookStrategy(base time.Duration, multiplier float64) Strategy {
	scaled := time.Duration(float64(base) * multiplier)
	return NewSymmetricJitter(NewExponential(scaled, 30*time.Minute), 0.1, 30*time.Minute)
}

// DefaultStrategy returns ExponentialWithJitter with 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
