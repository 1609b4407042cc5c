package middleware

import (
	"context"
)

// Timeout returns middleware that enforces a per-attempt deadline.
// If the attempt has a non-zero Timeout, a context.WithTimeout wraps the
// handler call. Strategies are expected to honor ctx.
func Timeout() Middleware {
	return func(ctx context.Context, a *Attempt, next Handler) error {
		if a.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
