package stream

import (
	"sync"
	"sync/atomic"
)

// Filter decides whether an event is delivered to a subscriber.
type Filter func(*Event) bool

// OnlyTypes returns a Filter that passes events of the listed types.
func OnlyTypes(types ...EventType) Filter {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(evt *Event) bool {
		_, ok := set[evt.Type]
		return ok
	}
}

// Terminal passes only events after which the entity they describe
// changes no more: finished renders and finished videos.
func Terminal(evt *Event) bool {
	switch evt.Type {
	case EventRenderCompleted, EventRenderFailed, EventRenderCanceled,
		EventVideoCompleted, EventVideoFailed:
		return true
	}
	return false
}

// Subscriber is one consumer of broker topics. Delivery is gated by
// credits: each delivered event costs one and the consumer hands them
// back with AddCredits. A subscriber without credits misses events
// rather than slowing the publisher.
type Subscriber struct {
	id      string
	ch      chan *Event
	filter  Filter
	credits atomic.Int64
	dropped atomic.Int64

	topicsMu sync.RWMutex
	topics   map[string]struct{}

	// sendMu is held for reading by send and for writing by Close.
	sendMu sync.RWMutex
	closed bool
}

// NewSubscriber creates a subscriber with a channel of bufferSize and
// an initial credit grant.
func NewSubscriber(id string, bufferSize int, initialCredits int64) *Subscriber {
	s := &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
	s.credits.Store(initialCredits)
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the channel events arrive on. It is closed when the
// subscriber is removed from the broker.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits grants n more deliveries.
func (s *Subscriber) AddCredits(n int64) { s.credits.Add(n) }

// Credits returns the remaining credit count.
func (s *Subscriber) Credits() int64 { return s.credits.Load() }

// Dropped returns how many events passed the filter but were not
// delivered for lack of credits or buffer space.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// SetFilter installs fn as the delivery filter. Set it before the
// subscriber is attached to a topic.
func (s *Subscriber) SetFilter(fn Filter) { s.filter = fn }

func (s *Subscriber) addTopic(topic string) {
	s.topicsMu.Lock()
	s.topics[topic] = struct{}{}
	s.topicsMu.Unlock()
}

func (s *Subscriber) removeTopic(topic string) {
	s.topicsMu.Lock()
	delete(s.topics, topic)
	s.topicsMu.Unlock()
}

// Topics returns the topics the subscriber is attached to.
func (s *Subscriber) Topics() []string {
	s.topicsMu.RLock()
	defer s.topicsMu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// send delivers evt without blocking and reports whether it was
// delivered. Filtered events are not counted as dropped.
func (s *Subscriber) send(evt *Event) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.closed {
		return false
	}
	if s.filter != nil && !s.filter(evt) {
		return false
	}
	if !s.takeCredit() {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.ch <- evt:
		return true
	default:
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
}

func (s *Subscriber) takeCredit() bool {
	for {
		n := s.credits.Load()
		if n <= 0 {
			return false
		}
		if s.credits.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Close closes the event channel. Calling it again is a no-op.
func (s *Subscriber) Close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
