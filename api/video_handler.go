package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	zencourt "github.com/cladams7905/zencourt-sub006"
)

func (a *API) startGeneration(ctx forge.Context) error {
	var req StartGenerationRequest
	if err := ctx.Bind(&req); err != nil {
		return forge.BadRequest(fmt.Sprintf("invalid generation request: %v", err))
	}
	if len(req.JobIDs) == 0 {
		return forge.BadRequest("jobIds must not be empty")
	}

	res, err := a.eng.Generation().Start(ctx.Context(), ctx.Param("videoId"), req.JobIDs)
	if err != nil {
		if errors.Is(err, zencourt.ErrAllDispatchFailed) {
			return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return mapStoreError(err)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (a *API) getVideo(ctx forge.Context) error {
	c := ctx.Context()
	videoID := ctx.Param("videoId")

	v, err := a.eng.Store().FindVideoByID(c, videoID)
	if err != nil {
		return mapStoreError(err)
	}
	status, err := a.eng.Store().EvaluateJobCompletion(c, videoID)
	if err != nil {
		return fmt.Errorf("evaluate video %s: %w", videoID, err)
	}
	return ctx.JSON(http.StatusOK, VideoResponse{Video: v, Completion: status})
}

func (a *API) getGenerationJob(ctx forge.Context) error {
	j, err := a.eng.Store().FindJobByID(ctx.Context(), ctx.Param("jobId"))
	if err != nil {
		return mapStoreError(err)
	}
	return ctx.JSON(http.StatusOK, j)
}
