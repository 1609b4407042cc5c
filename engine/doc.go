// Package engine wires every orchestration subsystem together from one
// Config and one store.
//
// Engine sits above all component packages and below the application
// layer (the HTTP API and the zencourtd command). Component packages
// never import each other's constructors; the engine is the only place
// that knows how they fit.
//
// # Building an Engine
//
//	cfg, _ := zencourt.LoadConfig()
//	st := memory.New()
//
//	eng, err := engine.Build(ctx, cfg, st,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(relayhook.New(r)),
//	    engine.WithCallbackURL(func(j *clip.GenerationJob) string {
//	        return "https://api.example.com/webhooks/fal?jobId=" + j.ID
//	    }),
//	)
//
// Build assembles, in order: the extension registry (stream broker and
// metrics extension always registered), the dead letter queue and the
// outbound webhook service, the provider facade with its attempt
// middleware, the inbound verifier, object storage, the completion and
// callback orchestrators, the generation orchestrator, the optional
// render queue and the maintenance scheduler.
//
// # Lifecycle
//
//	eng.Start(ctx) // starts the maintenance scheduler
//	defer eng.Stop(ctx)
//
// Stop cancels in-flight renders, waits for pending status webhooks and
// fires the OnShutdown hook.
//
// # Options
//
//   - [WithExtension] registers a lifecycle extension
//   - [WithStrategy] adds a generation provider ahead of config-built ones
//   - [WithRenderProvider] sets the render backend
//   - [WithStorage] sets the object store
//   - [WithMiddleware] adds provider attempt middleware
//   - [WithCallbackURL] sets the per-job provider webhook URL
//   - [WithTracerProvider] and [WithMeterProvider] set OTel providers
package engine
