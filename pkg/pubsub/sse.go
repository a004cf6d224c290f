package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/heatnet/pkg/logging"
)

// subscriberQueue is the per-subscription channel capacity. Publishing never
// blocks; a subscriber that falls further behind loses events.
const subscriberQueue = 100

var errClosed = errors.New("publisher is closed")

// TopicConfig controls what a topic keeps for late subscribers
type TopicConfig struct {
	BufferSize int  // events kept per topic; 0 keeps none
	ReplayAll  bool // replay the whole backlog instead of the newest event
}

type topicState struct {
	cfg     TopicConfig
	version int
	backlog []Event
	subs    map[*sseSubscription]struct{}
}

// replay returns the events a new subscriber should see first
func (t *topicState) replay() []Event {
	if len(t.backlog) == 0 {
		return nil
	}
	from := len(t.backlog) - 1
	if t.cfg.ReplayAll {
		from = 0
	}
	return append([]Event(nil), t.backlog[from:]...)
}

func (t *topicState) remember(e Event) {
	if t.cfg.BufferSize <= 0 {
		return
	}
	t.backlog = append(t.backlog, e)
	if over := len(t.backlog) - t.cfg.BufferSize; over > 0 {
		t.backlog = t.backlog[over:]
	}
}

// SSEPublisher fans pipeline events out to Server-Sent Events subscribers
type SSEPublisher struct {
	mu      sync.RWMutex
	topics  map[string]*topicState
	closed  bool
	dropped int
}

func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

// topic returns the state for name, creating it on first use. Callers hold mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets the backlog policy for a topic
func (p *SSEPublisher) ConfigureTopic(name string, cfg TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(name).cfg = cfg
}

// Subscribe registers a subscriber and queues the topic's replay for it.
// The subscription closes when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errClosed
	}
	t := p.topic(name)
	sub := &sseSubscription{topic: name, events: make(chan Event, subscriberQueue), publisher: p}
	t.subs[sub] = struct{}{}
	replay := t.replay()
	if over := len(replay) - subscriberQueue; over > 0 {
		replay = replay[over:]
	}
	for _, e := range replay {
		sub.events <- e
	}
	p.mu.Unlock()

	if len(replay) > 0 {
		logging.Debug("Replayed events to new subscriber", "topic", name, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Publish stamps the next topic version on data and delivers it to every
// subscriber with room in its queue
func (p *SSEPublisher) Publish(name string, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}

	t := p.topic(name)
	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.remember(event)

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			p.dropped++
			logging.Warn("Subscriber lagging, dropping event", "topic", name, "type", eventType)
		}
	}
	return nil
}

// Close ends every subscription. Publishing afterwards fails.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

// Dropped counts events lost to lagging subscribers
func (p *SSEPublisher) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// Subscribers returns the number of open subscriptions on a topic
func (p *SSEPublisher) Subscribers(name string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if t, ok := p.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
}

func (s *sseSubscription) Topic() string        { return s.topic }
func (s *sseSubscription) Events() <-chan Event { return s.events }

// Close detaches the subscription; its channel is left open so readers must
// also watch their context
func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.unsubscribe(s) })
	return nil
}

// WriteSSE writes one event in text/event-stream framing:
//
//	id: <version>
//	event: <type>
//	data: <event json>
func WriteSSE(w io.Writer, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Type, body)
	return err
}
