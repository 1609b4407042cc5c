package stream

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Topics come in two shapes. Entity topics carry an id:
//
//	generation:<jobID>   events for one generation job
//	video:<videoID>      video events plus events of its generation jobs
//	render:<jobID>       events for one render job
//
// Collection topics carry every event of a kind:
//
//	generations, videos, renders, firehose
const (
	TopicGenerations = "generations"
	TopicVideos      = "videos"
	TopicRenders     = "renders"
	TopicFirehose    = "firehose"
)

// Entity is the kind of thing an entity topic is about.
type Entity string

const (
	EntityGeneration Entity = "generation"
	EntityVideo      Entity = "video"
	EntityRender     Entity = "render"
)

// collections maps each entity kind to its collection topic.
var collections = map[Entity]string{
	EntityGeneration: TopicGenerations,
	EntityVideo:      TopicVideos,
	EntityRender:     TopicRenders,
}

// ErrInvalidTopic is returned for topic strings that name no known
// collection or entity.
var ErrInvalidTopic = errors.New("stream: invalid topic")

// GenerationTopic returns the topic for a generation job.
func GenerationTopic(jobID string) string { return entityTopic(EntityGeneration, jobID) }

// VideoTopic returns the topic for a video.
func VideoTopic(videoID string) string { return entityTopic(EntityVideo, videoID) }

// RenderTopic returns the topic for a render job.
func RenderTopic(jobID string) string { return entityTopic(EntityRender, jobID) }

func entityTopic(e Entity, id string) string { return string(e) + ":" + id }

// ParseTopic splits an entity topic into its kind and id. Collection
// topics return an empty kind and id with a nil error.
func ParseTopic(topic string) (Entity, string, error) {
	if topic == TopicFirehose {
		return "", "", nil
	}
	for _, c := range collections {
		if topic == c {
			return "", "", nil
		}
	}

	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("%w %q", ErrInvalidTopic, topic)
	}
	if _, known := collections[Entity(kind)]; !known {
		return "", "", fmt.Errorf("%w %q: unknown entity %q", ErrInvalidTopic, topic, kind)
	}
	return Entity(kind), id, nil
}

// ValidateTopic reports whether topic can be subscribed to.
func ValidateTopic(topic string) error {
	_, _, err := ParseTopic(topic)
	return err
}

// ParseTopics reads a comma separated topic list such as
// "render:rnd_1, videos". An empty list means the firehose.
func ParseTopics(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{TopicFirehose}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := ValidateTopic(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{TopicFirehose}, nil
	}
	return out, nil
}

// resolveTopics lists every topic evt is published on: the firehose,
// the collection for its entity kind, its own topic, then extra.
func resolveTopics(evt *Event, extra ...string) []string {
	topics := []string{TopicFirehose}

	kind, _, _ := strings.Cut(string(evt.Type), ".")
	if c, ok := collections[Entity(kind)]; ok {
		topics = append(topics, c)
	}
	if evt.Topic != "" {
		topics = append(topics, evt.Topic)
	}
	return append(topics, extra...)
}

// TopicRegistry tracks which subscribers are on which topic. It is safe
// for concurrent use.
type TopicRegistry struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscriber // topic -> subscriber id
}

// NewTopicRegistry creates an empty registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{subs: make(map[string]map[string]*Subscriber)}
}

// Subscribe puts sub on topic.
func (tr *TopicRegistry) Subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	set := tr.subs[topic]
	if set == nil {
		set = make(map[string]*Subscriber)
		tr.subs[topic] = set
	}
	set[sub.ID()] = sub
	sub.addTopic(topic)
}

// Unsubscribe takes a subscriber off topic. Topics left empty are
// forgotten.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.detach(topic, subscriberID)
}

// UnsubscribeAll takes a subscriber off every topic.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for topic := range tr.subs {
		tr.detach(topic, subscriberID)
	}
}

// detach must be called with mu held.
func (tr *TopicRegistry) detach(topic, subscriberID string) {
	set := tr.subs[topic]
	if sub, ok := set[subscriberID]; ok {
		sub.removeTopic(topic)
		delete(set, subscriberID)
	}
	if len(set) == 0 {
		delete(tr.subs, topic)
	}
}

// Broadcast delivers evt once to every subscriber on any of topics and
// returns how many received it.
func (tr *TopicRegistry) Broadcast(topics []string, evt *Event) int {
	tr.mu.RLock()
	targets := make(map[string]*Subscriber)
	for _, topic := range topics {
		for id, sub := range tr.subs[topic] {
			targets[id] = sub
		}
	}
	tr.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if sub.send(evt) {
			delivered++
		}
	}
	return delivered
}

// TopicCount returns the number of topics with at least one subscriber.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.subs)
}

// SubscriberCount returns the number of subscribers on topic.
func (tr *TopicRegistry) SubscriberCount(topic string) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.subs[topic])
}
