package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) listTasks(ctx forge.Context) error {
	return ctx.JSON(http.StatusOK, a.eng.Scheduler().Entries())
}

func (a *API) runDueTasks(ctx forge.Context) error {
	ran := a.eng.Scheduler().RunDue(ctx.Context())
	return ctx.JSON(http.StatusOK, RunTasksResponse{Ran: ran})
}
