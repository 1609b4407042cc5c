package api

import (
	"errors"
	"strconv"

	"github.com/xraph/forge"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/provider"
	"github.com/cladams7905/zencourt-sub006/stream"
)

// CreateRenderResponse is returned by POST /v1/renders.
type CreateRenderResponse struct {
	JobID string `json:"jobId"`
}

// CancelRenderResponse is returned by POST /v1/renders/:jobId/cancel.
type CancelRenderResponse struct {
	JobID    string `json:"jobId"`
	Canceled bool   `json:"canceled"`
}

// StartGenerationRequest is the body of POST /v1/videos/:videoId/generate.
type StartGenerationRequest struct {
	JobIDs []string `json:"jobIds" validate:"required,min=1"`
}

// VideoResponse is a video plus its clip summary.
type VideoResponse struct {
	Video      *clip.Video            `json:"video"`
	Completion *clip.CompletionStatus `json:"completion"`
}

// ListDLQRequest holds the query parameters of GET /v1/dlq.
type ListDLQRequest struct {
	Limit   int    `query:"limit"`
	Offset  int    `query:"offset"`
	VideoID string `query:"videoId"`
}

// PurgeDLQRequest is the optional body of POST /v1/dlq/purge.
type PurgeDLQRequest struct {
	// OlderThan is a Go duration string, e.g. "72h".
	OlderThan string `json:"olderThan,omitempty"`
}

// PurgeDLQResponse reports how many entries were removed.
type PurgeDLQResponse struct {
	Purged int64 `json:"purged"`
}

// DLQCountResponse is the DLQ size.
type DLQCountResponse struct {
	Count int64 `json:"count"`
}

// RunTasksResponse reports how many maintenance tasks ran.
type RunTasksResponse struct {
	Ran int `json:"ran"`
}

// ProviderStatus is one provider's circuit and counters.
type ProviderStatus struct {
	Name    string                   `json:"name"`
	Breaker provider.BreakerSnapshot `json:"breaker"`
	Stats   provider.Stats           `json:"stats"`
}

// RenderCounts groups retained render jobs by state.
type RenderCounts struct {
	Queued     int `json:"queued"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Canceled   int `json:"canceled"`
}

// StatsResponse aggregates orchestrator statistics.
type StatsResponse struct {
	Providers []ProviderStatus   `json:"providers"`
	Renders   *RenderCounts      `json:"renders,omitempty"`
	DLQCount  int64              `json:"dlq_count"`
	Stream    stream.BrokerStats `json:"stream"`
}

const maxLimit = 500

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func queryInt(ctx forge.Context, name string) int {
	n, err := strconv.Atoi(ctx.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// mapStoreError converts sentinel errors to forge HTTP errors.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return forge.NotFound(err.Error())
	case errors.Is(err, zencourt.ErrVideoMismatch),
		errors.Is(err, zencourt.ErrNotCancellable):
		return forge.BadRequest(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, zencourt.ErrJobNotFound) ||
		errors.Is(err, zencourt.ErrVideoNotFound) ||
		errors.Is(err, zencourt.ErrNoJobsFound) ||
		errors.Is(err, zencourt.ErrRenderJobNotFound) ||
		errors.Is(err, zencourt.ErrDLQNotFound)
}
