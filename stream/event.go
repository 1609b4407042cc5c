// Package stream provides a real-time event broker for zencourt lifecycle
// events. It bridges the ext.Extension system to in-process subscribers
// via topic-based pub/sub; render progress is consumed this way.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Generation events.
	EventGenerationDispatched EventType = "generation.dispatched"
	EventGenerationFailed     EventType = "generation.failed"
	EventGenerationCompleted  EventType = "generation.completed"

	// Video events.
	EventVideoCompleted EventType = "video.completed"
	EventVideoFailed    EventType = "video.failed"

	// Render events.
	EventRenderStarted   EventType = "render.started"
	EventRenderProgress  EventType = "render.progress"
	EventRenderCompleted EventType = "render.completed"
	EventRenderFailed    EventType = "render.failed"
	EventRenderCanceled  EventType = "render.canceled"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the entity channel this event was published on.
	Topic string `json:"topic"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// GenerationEventData is the payload for generation lifecycle events.
type GenerationEventData struct {
	JobID     string `json:"job_id"`
	VideoID   string `json:"video_id"`
	Provider  string `json:"provider,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// VideoEventData is the payload for video lifecycle events.
type VideoEventData struct {
	VideoID string `json:"video_id"`
	Message string `json:"message,omitempty"`
}

// RenderEventData is the payload for render lifecycle events.
type RenderEventData struct {
	JobID     string  `json:"job_id"`
	Progress  float64 `json:"progress,omitempty"`
	ElapsedMs int64   `json:"elapsed_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}
