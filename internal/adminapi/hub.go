package adminapi

import "sync"

// hubBacklog bounds how many events a slow subscriber can fall behind by
// before it starts dropping — mirrors the bounded sendChan the teacher's
// gRPC client uses to avoid blocking the caller on a stalled stream.
const hubBacklog = 64

// Hub fans published events out to every active StreamEvents subscriber.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *Event]struct{}
}

// NewHub returns an empty, ready-to-use Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *Event]struct{})}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe func the caller must invoke when done.
func (h *Hub) Subscribe() (<-chan *Event, func()) {
	ch := make(chan *Event, hubBacklog)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish delivers e to every current subscriber, dropping it for anyone
// whose buffer is already full rather than blocking the publisher.
func (h *Hub) Publish(e *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
