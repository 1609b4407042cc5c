package cron

import "context"

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// Definition is a named task with a schedule.
type Definition struct {
	// Name is the unique identifier for this task.
	Name string

	// Schedule is a cron expression (e.g., "*/5 * * * *" or "@every 30s").
	Schedule string

	// Run is invoked each time the schedule fires.
	Run TaskFunc
}
