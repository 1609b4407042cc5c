// Package api exposes the orchestrator's control surface over a Forge
// router: render jobs, generation starts, video status, dead letters,
// provider health, maintenance tasks and a server-sent event stream.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/cron"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/engine"
	"github.com/cladams7905/zencourt-sub006/generation"
	"github.com/cladams7905/zencourt-sub006/render"
)

// API wires all Forge-style HTTP handlers together.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from an Engine. router may be nil.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers every route into router with OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	a.registerRenderRoutes(router)
	a.registerVideoRoutes(router)
	a.registerDLQRoutes(router)
	a.registerMaintenanceRoutes(router)
	a.registerStatsRoutes(router)
	a.registerEventRoutes(router)
}

// registerRenderRoutes registers render queue routes. They are mounted
// even without a render backend and answer 503 in that case.
func (a *API) registerRenderRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("renders"))

	_ = g.POST("/renders", a.createRender,
		forge.WithSummary("Create render job"),
		forge.WithDescription("Queues a render of finished clips and returns its id immediately."),
		forge.WithOperationID("createRender"),
		forge.WithRequestSchema(render.Input{}),
		forge.WithCreatedResponse(CreateRenderResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/renders", a.listRenders,
		forge.WithSummary("List render jobs"),
		forge.WithDescription("Returns every render job still retained by the queue."),
		forge.WithOperationID("listRenders"),
		forge.WithResponseSchema(http.StatusOK, "Render jobs", []render.Job{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/renders/:jobId", a.getRender,
		forge.WithSummary("Get render job"),
		forge.WithDescription("Returns a snapshot of a render job."),
		forge.WithOperationID("getRender"),
		forge.WithResponseSchema(http.StatusOK, "Render job", render.Job{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/renders/:jobId/cancel", a.cancelRender,
		forge.WithSummary("Cancel render job"),
		forge.WithDescription("Cancels a queued or in-progress render job."),
		forge.WithOperationID("cancelRender"),
		forge.WithResponseSchema(http.StatusOK, "Canceled", CancelRenderResponse{}),
		forge.WithErrorResponses(),
	)
}

// registerVideoRoutes registers generation and video status routes.
func (a *API) registerVideoRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("videos"))

	_ = g.POST("/videos/:videoId/generate", a.startGeneration,
		forge.WithSummary("Start generation"),
		forge.WithDescription("Dispatches the given clip jobs of a video to the generation providers."),
		forge.WithOperationID("startGeneration"),
		forge.WithRequestSchema(StartGenerationRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Dispatch result", generation.Result{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/videos/:videoId", a.getVideo,
		forge.WithSummary("Get video"),
		forge.WithDescription("Returns a video with a summary of its clip jobs."),
		forge.WithOperationID("getVideo"),
		forge.WithResponseSchema(http.StatusOK, "Video", VideoResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs/:jobId", a.getGenerationJob,
		forge.WithSummary("Get generation job"),
		forge.WithDescription("Returns one clip generation job."),
		forge.WithOperationID("getGenerationJob"),
		forge.WithResponseSchema(http.StatusOK, "Generation job", &clip.GenerationJob{}),
		forge.WithErrorResponses(),
	)
}

// registerDLQRoutes registers dead letter queue management routes.
func (a *API) registerDLQRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("dlq"))

	_ = g.GET("/dlq", a.listDLQ,
		forge.WithSummary("List DLQ entries"),
		forge.WithDescription("Returns webhook deliveries that exhausted their retries."),
		forge.WithOperationID("listDLQ"),
		forge.WithRequestSchema(ListDLQRequest{}),
		forge.WithResponseSchema(http.StatusOK, "DLQ entries", []*dlq.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dlq/count", a.dlqCount,
		forge.WithSummary("DLQ count"),
		forge.WithDescription("Returns the total number of DLQ entries."),
		forge.WithOperationID("dlqCount"),
		forge.WithResponseSchema(http.StatusOK, "DLQ count", DLQCountResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dlq/:entryId", a.getDLQ,
		forge.WithSummary("Get DLQ entry"),
		forge.WithDescription("Returns details of a specific DLQ entry."),
		forge.WithOperationID("getDLQ"),
		forge.WithResponseSchema(http.StatusOK, "DLQ entry details", &dlq.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/dlq/:entryId/replay", a.replayDLQ,
		forge.WithSummary("Replay DLQ entry"),
		forge.WithDescription("Re-sends the parked payload once and marks the entry replayed."),
		forge.WithOperationID("replayDLQ"),
		forge.WithResponseSchema(http.StatusOK, "Replayed entry", &dlq.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/dlq/purge", a.purgeDLQ,
		forge.WithSummary("Purge DLQ"),
		forge.WithDescription("Removes entries older than the given age, or the configured retention."),
		forge.WithOperationID("purgeDLQ"),
		forge.WithRequestSchema(PurgeDLQRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Purge result", PurgeDLQResponse{}),
		forge.WithErrorResponses(),
	)
}

// registerMaintenanceRoutes registers maintenance scheduler routes.
func (a *API) registerMaintenanceRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("maintenance"))

	_ = g.GET("/maintenance", a.listTasks,
		forge.WithSummary("List maintenance tasks"),
		forge.WithDescription("Returns the scheduled maintenance tasks and their last run."),
		forge.WithOperationID("listMaintenanceTasks"),
		forge.WithResponseSchema(http.StatusOK, "Maintenance tasks", []cron.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/maintenance/run", a.runDueTasks,
		forge.WithSummary("Run due maintenance tasks"),
		forge.WithDescription("Runs every task whose next run time has passed."),
		forge.WithOperationID("runMaintenanceTasks"),
		forge.WithResponseSchema(http.StatusOK, "Run result", RunTasksResponse{}),
		forge.WithErrorResponses(),
	)
}

// registerStatsRoutes registers aggregate statistics routes.
func (a *API) registerStatsRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("stats"))

	_ = g.GET("/stats", a.stats,
		forge.WithSummary("Orchestrator stats"),
		forge.WithDescription("Returns provider circuit state, render counts, DLQ size and stream stats."),
		forge.WithOperationID("orchestratorStats"),
		forge.WithResponseSchema(http.StatusOK, "Orchestrator statistics", StatsResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/providers", a.listProviders,
		forge.WithSummary("Provider health"),
		forge.WithDescription("Returns each generation provider's circuit breaker snapshot."),
		forge.WithOperationID("listProviders"),
		forge.WithResponseSchema(http.StatusOK, "Providers", []ProviderStatus{}),
		forge.WithErrorResponses(),
	)
}

// registerEventRoutes registers the lifecycle event stream.
func (a *API) registerEventRoutes(router forge.Router) {
	if err := router.EventStream("/v1/events", a.streamEvents); err != nil {
		a.eng.Logger().Error("failed to register event stream")
	}
}
