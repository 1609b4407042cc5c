// Package provider is the dispatch facade in front of external video
// generation providers.
//
// Strategies are tried in the order they were configured. Each has its own
// circuit breaker owned by the [Facade]: an open circuit is skipped without
// calling the strategy, a closed one gets up to MaxAttempts calls. Every
// failure counts toward the breaker's consecutive-failure threshold and
// every success resets it. The first success wins; otherwise the last
// error is returned, or zencourt.ErrNoEligibleProvider when no strategy
// could handle the input.
//
// Each attempt runs through a middleware chain (see package middleware)
// and, when configured, waits on a per-provider token bucket.
package provider
