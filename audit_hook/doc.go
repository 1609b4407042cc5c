// Package audithook is an extension that turns clip generation, video and
// render lifecycle events into structured audit events.
//
// Events go through the [Recorder] interface so any audit backend can be
// plugged in. Severity follows the outcome: info for progress, warning for
// partial results and critical for terminal failures.
//
// # Logging recorder
//
//	eng, _ := engine.Build(ctx, cfg, st,
//	    engine.WithExtension(audithook.New(audithook.LogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionGenerationFailed,
//	        audithook.ActionVideoFailed,
//	        audithook.ActionRenderFailed,
//	    ),
//	)
package audithook
