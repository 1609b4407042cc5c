package provider

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	zencourt "github.com/cladams7905/zencourt-sub006"
)

// CircuitOpenError records that a provider was skipped because its
// circuit is open.
type CircuitOpenError struct {
	Provider string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("zencourt: provider %s circuit open", e.Provider)
}

func (e *CircuitOpenError) Unwrap() error { return zencourt.ErrCircuitOpen }

// BreakerState mirrors the gobreaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// BreakerSnapshot is a point-in-time view of one provider's breaker.
type BreakerSnapshot struct {
	Provider            string       `json:"provider"`
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	// OpenedAt is set while the circuit is open or half-open.
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

// Stats are cumulative per-provider counters.
type Stats struct {
	Attempts     int64 `json:"attempts"`
	Successes    int64 `json:"successes"`
	Failures     int64 `json:"failures"`
	CircuitSkips int64 `json:"circuit_skips"`
}

// breaker pairs a gobreaker with the counters the facade reports.
// gobreaker resets its own counts on every state change, so consecutive
// failures are tracked here as well.
type breaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	failures atomic.Int64
	openedAt atomic.Pointer[time.Time]

	attempts     atomic.Int64
	successes    atomic.Int64
	failed       atomic.Int64
	circuitSkips atomic.Int64
}

func newBreaker(name string, threshold int, cooldown time.Duration, logger *slog.Logger) *breaker {
	b := &breaker{name: name}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		// Zero keeps closed-state counts until a success or a trip.
		Interval: 0,
		Timeout:  cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				now := time.Now().UTC()
				b.openedAt.Store(&now)
			case gobreaker.StateClosed:
				b.openedAt.Store(nil)
			}
			logger.Info("provider circuit state changed",
				slog.String("provider", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return b
}

func (b *breaker) recordSuccess() {
	b.successes.Add(1)
	b.failures.Store(0)
}

func (b *breaker) recordFailure() {
	b.failed.Add(1)
	b.failures.Add(1)
}

func (b *breaker) snapshot() BreakerSnapshot {
	s := BreakerSnapshot{
		Provider:            b.name,
		State:               stateOf(b.cb.State()),
		ConsecutiveFailures: int(b.failures.Load()),
	}
	if t := b.openedAt.Load(); t != nil && s.State != StateClosed {
		at := *t
		s.OpenedAt = &at
	}
	return s
}

func (b *breaker) stats() Stats {
	return Stats{
		Attempts:     b.attempts.Load(),
		Successes:    b.successes.Load(),
		Failures:     b.failed.Load(),
		CircuitSkips: b.circuitSkips.Load(),
	}
}

func stateOf(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
