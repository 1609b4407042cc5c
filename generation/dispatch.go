package generation

import (
	"context"
	"fmt"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// Dispatcher routes a dispatch input to a provider. *provider.Facade
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error)
}

// CallbackURLFunc returns the webhook URL a provider should call for j.
type CallbackURLFunc func(j *clip.GenerationJob) string

// FacadeDispatch returns a DispatchFunc that builds the provider input
// from the job settings, dispatches through d and records the provider's
// request id on the job. callbackURL may be nil.
func FacadeDispatch(d Dispatcher, store clip.Store, callbackURL CallbackURLFunc) DispatchFunc {
	return func(ctx context.Context, j *clip.GenerationJob) (*clip.DispatchResult, error) {
		in := clip.NewDispatchInput(j)
		if callbackURL != nil {
			in.WebhookURL = callbackURL(j)
		}

		res, err := d.Dispatch(ctx, in)
		if err != nil {
			return nil, err
		}
		if err := store.MarkJobDispatched(ctx, j.ID, res); err != nil {
			return nil, fmt.Errorf("record dispatch of job %s: %w", j.ID, err)
		}
		return res, nil
	}
}
