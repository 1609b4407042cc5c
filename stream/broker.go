package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*Broker)(nil)
	_ ext.GenerationDispatched = (*Broker)(nil)
	_ ext.GenerationFailed     = (*Broker)(nil)
	_ ext.GenerationCompleted  = (*Broker)(nil)
	_ ext.VideoCompleted       = (*Broker)(nil)
	_ ext.VideoFailed          = (*Broker)(nil)
	_ ext.RenderStarted        = (*Broker)(nil)
	_ ext.RenderProgress       = (*Broker)(nil)
	_ ext.RenderCompleted      = (*Broker)(nil)
	_ ext.RenderFailed         = (*Broker)(nil)
	_ ext.RenderCanceled       = (*Broker)(nil)
	_ ext.Shutdown             = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time stream broker. It implements the ext.Extension
// interface to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	return b.SubscribeFiltered(subscriberID, nil, topics...)
}

// SubscribeFiltered is Subscribe with a delivery filter installed before
// the subscriber joins any topic. A nil filter passes everything.
func (b *Broker) SubscribeFiltered(subscriberID string, filter Filter, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	sub.SetFilter(filter)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish broadcasts an event to all matching topics plus extra ones.
func (b *Broker) publish(evt *Event, extra ...string) {
	topics := resolveTopics(evt, extra...)
	delivered := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
	if delivered == 0 {
		b.totalDropped.Add(1)
	}
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// ── Generation lifecycle hooks ──────────────────────

func (b *Broker) OnGenerationDispatched(_ context.Context, j *clip.GenerationJob, res *clip.DispatchResult) error {
	b.publish(&Event{
		Type:      EventGenerationDispatched,
		Timestamp: time.Now().UTC(),
		Topic:     GenerationTopic(j.ID),
		Data: mustMarshal(GenerationEventData{
			JobID:     j.ID,
			VideoID:   j.VideoID,
			Provider:  res.Provider,
			RequestID: res.RequestID,
		}),
	}, VideoTopic(j.VideoID))
	return nil
}

func (b *Broker) OnGenerationFailed(_ context.Context, j *clip.GenerationJob, jobErr error) error {
	b.publish(&Event{
		Type:      EventGenerationFailed,
		Timestamp: time.Now().UTC(),
		Topic:     GenerationTopic(j.ID),
		Data: mustMarshal(GenerationEventData{
			JobID:   j.ID,
			VideoID: j.VideoID,
			Error:   jobErr.Error(),
		}),
	}, VideoTopic(j.VideoID))
	return nil
}

func (b *Broker) OnGenerationCompleted(_ context.Context, j *clip.GenerationJob) error {
	b.publish(&Event{
		Type:      EventGenerationCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     GenerationTopic(j.ID),
		Data: mustMarshal(GenerationEventData{
			JobID:    j.ID,
			VideoID:  j.VideoID,
			VideoURL: j.VideoURL,
		}),
	}, VideoTopic(j.VideoID))
	return nil
}

// ── Video lifecycle hooks ───────────────────────────

func (b *Broker) OnVideoCompleted(_ context.Context, videoID string, message *string) error {
	data := VideoEventData{VideoID: videoID}
	if message != nil {
		data.Message = *message
	}
	b.publish(&Event{
		Type:      EventVideoCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     VideoTopic(videoID),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnVideoFailed(_ context.Context, videoID, message string) error {
	b.publish(&Event{
		Type:      EventVideoFailed,
		Timestamp: time.Now().UTC(),
		Topic:     VideoTopic(videoID),
		Data:      mustMarshal(VideoEventData{VideoID: videoID, Message: message}),
	})
	return nil
}

// ── Render lifecycle hooks ──────────────────────────

func (b *Broker) OnRenderStarted(_ context.Context, jobID string) error {
	b.publish(&Event{
		Type:      EventRenderStarted,
		Timestamp: time.Now().UTC(),
		Topic:     RenderTopic(jobID),
		Data:      mustMarshal(RenderEventData{JobID: jobID}),
	})
	return nil
}

func (b *Broker) OnRenderProgress(_ context.Context, jobID string, progress float64) error {
	b.publish(&Event{
		Type:      EventRenderProgress,
		Timestamp: time.Now().UTC(),
		Topic:     RenderTopic(jobID),
		Data:      mustMarshal(RenderEventData{JobID: jobID, Progress: progress}),
	})
	return nil
}

func (b *Broker) OnRenderCompleted(_ context.Context, jobID string, elapsed time.Duration) error {
	b.publish(&Event{
		Type:      EventRenderCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     RenderTopic(jobID),
		Data: mustMarshal(RenderEventData{
			JobID:     jobID,
			Progress:  100,
			ElapsedMs: elapsed.Milliseconds(),
		}),
	})
	return nil
}

func (b *Broker) OnRenderFailed(_ context.Context, jobID string, renderErr error) error {
	b.publish(&Event{
		Type:      EventRenderFailed,
		Timestamp: time.Now().UTC(),
		Topic:     RenderTopic(jobID),
		Data:      mustMarshal(RenderEventData{JobID: jobID, Error: renderErr.Error()}),
	})
	return nil
}

func (b *Broker) OnRenderCanceled(_ context.Context, jobID string) error {
	b.publish(&Event{
		Type:      EventRenderCanceled,
		Timestamp: time.Now().UTC(),
		Topic:     RenderTopic(jobID),
		Data:      mustMarshal(RenderEventData{JobID: jobID}),
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		b.topics.UnsubscribeAll(key.(string)) //nolint:errcheck // keys are always strings
		value.(*Subscriber).Close()           //nolint:errcheck // sync.Map always stores *Subscriber
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
