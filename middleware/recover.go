package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace, so a broken
// strategy counts as a failed attempt instead of crashing the process.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *Attempt, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("provider strategy panicked",
					slog.String("provider", a.Provider),
					slog.String("job_id", a.JobID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in provider %s: %v", a.Provider, r)
			}
		}()
		return next(ctx)
	}
}
