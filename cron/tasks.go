package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops terminal jobs finished before cutoff. render.Queue
// satisfies it.
type Sweeper interface {
	Sweep(cutoff time.Time) int
}

// Purger removes parked entries older than maxAge. dlq.Service satisfies it.
type Purger interface {
	Purge(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RenderSweep returns a task that evicts finished render jobs older than
// retention.
func RenderSweep(schedule string, q Sweeper, retention time.Duration, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}
	return Definition{
		Name:     "render-sweep",
		Schedule: schedule,
		Run: func(context.Context) error {
			n := q.Sweep(time.Now().UTC().Add(-retention))
			if n > 0 {
				logger.Info("swept render jobs", slog.Int("count", n))
			}
			return nil
		},
	}
}

// DLQPurge returns a task that removes dead letters older than maxAge.
func DLQPurge(schedule string, p Purger, maxAge time.Duration, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}
	return Definition{
		Name:     "dlq-purge",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := p.Purge(ctx, maxAge)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged dead letters", slog.Int64("count", n))
			}
			return nil
		},
	}
}
