// Package middleware provides composable middleware for provider dispatch
// attempts. Middleware wraps each attempt synchronously and can modify it
// (recover from panics, bound it with a deadline, log, trace, etc.).
package middleware

import (
	"context"
	"time"
)

// Attempt describes one call to one provider strategy.
type Attempt struct {
	// Provider is the strategy name.
	Provider string
	JobID    string
	VideoID  string
	Model    string
	// Number is the 1-based attempt number for this provider.
	Number int
	// Timeout bounds the attempt when non-zero.
	Timeout time.Duration
}

// Handler is the terminal function that calls the provider.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the attempt being made, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, a *Attempt, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, a *Attempt, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, a, prev)
			}
		}
		return h(ctx)
	}
}
