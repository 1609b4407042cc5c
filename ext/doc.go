// Package ext defines the extension system for zencourt.
//
// Extensions are notified of lifecycle events and can react to them:
// recording metrics, relaying webhooks, streaming progress, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnVideoCompleted(ctx context.Context, videoID string, msg *string) error {
//	    log.Printf("video %s completed", videoID)
//	    return nil
//	}
//
// # Generation Hooks
//
//   - [GenerationDispatched]: a provider accepted the job
//   - [GenerationFailed]: dispatch failed or the provider reported failure
//   - [GenerationCompleted]: the finished clip was stored
//
// # Video Hooks
//
//   - [VideoCompleted]: every clip is terminal and at least one succeeded
//   - [VideoFailed]: the video was marked failed
//
// # Render Hooks
//
//   - [RenderStarted], [RenderProgress], [RenderCompleted], [RenderFailed],
//     [RenderCanceled]
//
// # Other Hooks
//
//   - [Shutdown]: the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never block the pipeline.
package ext
