package provider

import (
	"context"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// Strategy is one external generation provider.
type Strategy interface {
	// Name identifies the provider. It keys the circuit breaker and stats.
	Name() string

	// CanHandle reports whether the provider supports the input.
	CanHandle(in *clip.DispatchInput) bool

	// Dispatch submits the job and returns the provider's acknowledgement.
	Dispatch(ctx context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error)
}
