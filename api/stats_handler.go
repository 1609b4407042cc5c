package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/cladams7905/zencourt-sub006/render"
)

func (a *API) providerStatuses() []ProviderStatus {
	f := a.eng.Providers()
	names := f.Providers()
	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		snap, _ := f.Breaker(name)
		stats, _ := f.Stats(name)
		out = append(out, ProviderStatus{Name: name, Breaker: snap, Stats: stats})
	}
	return out
}

func (a *API) listProviders(ctx forge.Context) error {
	return ctx.JSON(http.StatusOK, a.providerStatuses())
}

func (a *API) stats(ctx forge.Context) error {
	dlqCount, err := a.eng.DLQService().DLQStore().CountDLQ(ctx.Context())
	if err != nil {
		return err
	}

	resp := StatsResponse{
		Providers: a.providerStatuses(),
		DLQCount:  dlqCount,
		Stream:    a.eng.Broker().Stats(),
	}

	if q := a.eng.Renders(); q != nil {
		var counts RenderCounts
		for _, j := range q.Jobs() {
			switch j.State {
			case render.StateQueued:
				counts.Queued++
			case render.StateInProgress:
				counts.InProgress++
			case render.StateCompleted:
				counts.Completed++
			case render.StateFailed:
				counts.Failed++
			case render.StateCanceled:
				counts.Canceled++
			}
		}
		resp.Renders = &counts
	}

	return ctx.JSON(http.StatusOK, resp)
}
