// Package render tracks "compose final video" jobs handed to a rendering
// backend.
//
// CreateJob registers a job and returns its id at once; the render itself
// runs on its own goroutine. Progress and terminal transitions are emitted
// through the ext.Registry, so a stream.Broker registered there exposes
// them on the "render:<id>" topic to any number of subscribers. Callers
// that need the outcome block on Wait, which behaves like a future.
//
// Jobs live in memory only. Terminal jobs are removed by Sweep once they
// are older than the configured retention.
package render
