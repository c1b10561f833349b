package beast

import (
	"sync"
	"time"
)

// EventType identifies what changed in a run
type EventType string

const (
	EventState     EventType = "state"
	EventPlan      EventType = "plan"
	EventFiles     EventType = "files"
	EventRetry     EventType = "retry"
	EventError     EventType = "error"
	EventDiscarded EventType = "discarded"
)

// Event is published to subscribers of a session's runs
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

const subscriberBuffer = 32

// broker fans events out per session. Slow subscribers drop events.
type broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan Event]struct{})}
}

func (b *broker) subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[sessionID], ch)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *broker) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
