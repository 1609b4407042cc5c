// Package cron runs in-process maintenance tasks on cron schedules.
//
// A [Definition] names a task, its schedule expression and the function to
// run. The [Scheduler] evaluates due entries on every tick, runs each one,
// records LastRunAt and the last error, and computes the next NextRunAt.
// Entries live in memory; there is one scheduler per process.
//
// # Built-in tasks
//
//   - [RenderSweep] drops terminal render jobs older than a retention window
//   - [DLQPurge] removes dead-lettered webhook deliveries past a max age
//
// # Schedules
//
// Standard five-field expressions ("0 3 * * *") and descriptors such as
// "@every 10m" or "@hourly" are accepted.
package cron
