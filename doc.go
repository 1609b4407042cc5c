// Package zencourt is the asynchronous orchestration core for AI-generated
// marketing video clips. It dispatches clip generation to third-party
// providers behind per-provider circuit breakers, tracks every job through
// provider callbacks, delivers signed status webhooks, and aggregates the
// per-clip outcomes into a single decision for the parent video.
//
// The core is a library. Persistence, object storage and rendering are
// collaborators reached through narrow interfaces; the engine package wires
// the default implementations together.
//
// # Quick Start
//
//	cfg, err := zencourt.LoadConfig()
//	if err != nil { ... }
//
//	eng, err := engine.Build(ctx, cfg, memory.New(),
//	    engine.WithStrategy(falStrategy),
//	    engine.WithStorage(objectStore),
//	)
//
//	res, err := eng.Generation().Start(ctx, videoID, jobIDs)
//
// # Identifiers
//
// Generation jobs and videos are keyed by the ids of the owning database.
// Entities created here (render jobs, webhook deliveries, dead letters,
// stream subscribers) use TypeIDs: type-prefixed, K-sortable, UUIDv7-based.
package zencourt
