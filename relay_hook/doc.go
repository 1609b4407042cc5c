// Package relayhook forwards clip, video and render lifecycle events to
// Relay so downstream systems can subscribe to them as webhooks. It sits
// beside the per-video callback notifier: the notifier answers the one
// callback URL a video was created with, Relay fans the same moments out
// to any number of registered endpoints.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	engine.WithExtension(hook)
//
// To restrict which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventVideoCompleted,
//	        relayhook.EventVideoFailed,
//	    ),
//	)
package relayhook
