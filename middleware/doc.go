// Package middleware provides composable middleware for provider dispatch
// attempts.
//
// A [Middleware] wraps the call the provider facade makes to a single
// strategy. Middleware are composed into a chain using [Chain] and applied
// around every attempt. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs provider, job, duration, and outcome of each attempt
//   - [Recover]: catches strategy panics and converts them to errors
//   - [Timeout]: cancels the attempt context after Attempt.Timeout
//   - [Tracing]: wraps the attempt in an OpenTelemetry span
//   - [Metrics]: records per-provider duration and outcome counters
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
