package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
)

func (a *API) listDLQ(ctx forge.Context) error {
	entries, err := a.eng.DLQService().DLQStore().ListDLQ(ctx.Context(), dlq.ListOpts{
		Limit:   defaultLimit(queryInt(ctx, "limit")),
		Offset:  queryInt(ctx, "offset"),
		VideoID: ctx.Query("videoId"),
	})
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	if entries == nil {
		entries = []*dlq.Entry{}
	}

	return ctx.JSON(http.StatusOK, entries)
}

func (a *API) getDLQ(ctx forge.Context) error {
	entryID, err := id.ParseDLQID(ctx.Param("entryId"))
	if err != nil {
		return forge.BadRequest(fmt.Sprintf("invalid DLQ entry ID: %v", err))
	}

	entry, err := a.eng.DLQService().DLQStore().GetDLQ(ctx.Context(), entryID)
	if err != nil {
		return mapStoreError(err)
	}

	return ctx.JSON(http.StatusOK, entry)
}

func (a *API) replayDLQ(ctx forge.Context) error {
	entryID, err := id.ParseDLQID(ctx.Param("entryId"))
	if err != nil {
		return forge.BadRequest(fmt.Sprintf("invalid DLQ entry ID: %v", err))
	}

	entry, err := a.eng.DLQService().Replay(ctx.Context(), entryID)
	if err != nil {
		if isNotFound(err) {
			return forge.NotFound(err.Error())
		}
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, entry)
}

func (a *API) purgeDLQ(ctx forge.Context) error {
	maxAge := a.eng.Config().Webhook.DLQRetention

	var req PurgeDLQRequest
	if err := ctx.Bind(&req); err == nil && req.OlderThan != "" {
		d, parseErr := time.ParseDuration(req.OlderThan)
		if parseErr != nil || d < 0 {
			return forge.BadRequest(fmt.Sprintf("invalid olderThan %q", req.OlderThan))
		}
		maxAge = d
	}

	count, err := a.eng.DLQService().Purge(ctx.Context(), maxAge)
	if err != nil {
		return fmt.Errorf("purge dlq: %w", err)
	}

	return ctx.JSON(http.StatusOK, PurgeDLQResponse{Purged: count})
}

func (a *API) dlqCount(ctx forge.Context) error {
	count, err := a.eng.DLQService().DLQStore().CountDLQ(ctx.Context())
	if err != nil {
		return fmt.Errorf("count dlq: %w", err)
	}

	return ctx.JSON(http.StatusOK, DLQCountResponse{Count: count})
}
