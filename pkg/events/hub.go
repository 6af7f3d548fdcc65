package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 16

// Hub fans events out to every subscriber. A nil *Hub discards events.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub { return &Hub{subs: make(map[chan Event]struct{})} }

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish marshals payload and delivers it to all subscribers without
// blocking. It returns how many subscribers received the event.
func (h *Hub) Publish(name string, payload any) int {
	if h == nil {
		return 0
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("event", name).Errorf("failed to marshal event payload: %v", err)
		return 0
	}
	msg := Event{Name: name, Data: b}

	delivered := 0
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- msg:
			delivered++
		default:
			logrus.WithField("event", name).Debug("dropped event for slow subscriber")
		}
	}
	h.mu.RUnlock()
	return delivered
}
