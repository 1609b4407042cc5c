package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs attempt start and outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *Attempt, next Handler) error {
		logger.Debug("provider attempt started",
			slog.String("provider", a.Provider),
			slog.String("job_id", a.JobID),
			slog.Int("attempt", a.Number),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("provider attempt failed",
				slog.String("provider", a.Provider),
				slog.String("job_id", a.JobID),
				slog.Int("attempt", a.Number),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("provider attempt succeeded",
				slog.String("provider", a.Provider),
				slog.String("job_id", a.JobID),
				slog.Int("attempt", a.Number),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
