package agent

import (
	"sync"
	"time"
)

// EventType labels a run event.
type EventType string

const (
	EventPhaseChanged      EventType = "phase-changed"
	EventLogLine           EventType = "log-line"
	EventIterationComplete EventType = "iteration-complete"
	EventRunComplete       EventType = "run-complete"
)

// Event is one observer notification. Delivery is at-most-once: a
// subscriber that cannot keep up has events dropped, never buffered
// unboundedly.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	SiteID    string    `json:"site_id"`
	Phase     Phase     `json:"phase,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const subscriberBuffer = 64

// Bus fans run events out to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a receive channel and an unsubscribe func. The
// channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers to every subscriber without blocking. Full buffers
// drop the event for that subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
