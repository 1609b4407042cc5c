// Package observability counts lifecycle events through a go-utils
// MetricFactory. The MetricsExtension tracks clip dispatches, completions
// and failures, video outcomes and render results.
//
// Per-call provider metrics and spans live in the middleware package.
package observability
