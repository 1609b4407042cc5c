package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/render"
)

// withRenders answers 503 when no render backend is configured.
func (a *API) withRenders(ctx forge.Context, fn func(q *render.Queue) error) error {
	q := a.eng.Renders()
	if q == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "render service is not configured",
		})
	}
	return fn(q)
}

func (a *API) createRender(ctx forge.Context) error {
	return a.withRenders(ctx, func(q *render.Queue) error {
		var in render.Input
		if err := ctx.Bind(&in); err != nil {
			return forge.BadRequest(fmt.Sprintf("invalid render request: %v", err))
		}

		jobID, err := q.CreateJob(ctx.Context(), in)
		if errors.Is(err, zencourt.ErrRenderQueueClosed) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		if err != nil {
			return forge.BadRequest(err.Error())
		}
		return ctx.JSON(http.StatusCreated, CreateRenderResponse{JobID: jobID})
	})
}

func (a *API) listRenders(ctx forge.Context) error {
	return a.withRenders(ctx, func(q *render.Queue) error {
		return ctx.JSON(http.StatusOK, q.Jobs())
	})
}

func (a *API) getRender(ctx forge.Context) error {
	return a.withRenders(ctx, func(q *render.Queue) error {
		j, ok := q.GetJob(ctx.Param("jobId"))
		if !ok {
			return forge.NotFound(zencourt.ErrRenderJobNotFound.Error())
		}
		return ctx.JSON(http.StatusOK, j)
	})
}

func (a *API) cancelRender(ctx forge.Context) error {
	return a.withRenders(ctx, func(q *render.Queue) error {
		jobID := ctx.Param("jobId")
		j, ok := q.GetJob(jobID)
		if !ok {
			return forge.NotFound(zencourt.ErrRenderJobNotFound.Error())
		}
		if !q.CancelJob(jobID) {
			return forge.BadRequest(fmt.Sprintf("%v: current state %s", zencourt.ErrNotCancellable, j.State))
		}
		return ctx.JSON(http.StatusOK, CancelRenderResponse{JobID: jobID, Canceled: true})
	})
}
