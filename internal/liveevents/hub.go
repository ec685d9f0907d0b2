package liveevents

import (
	"context"
	"errors"
	"sync"
)

const (
	NameNewEvent      = "new-event"
	NameCleared       = "cleared"
	NameSecretUpdated = "secret-updated"
)

const DefaultSubscriberBuffer = 16

var ErrHubClosed = errors.New("hub_closed")

// Notification is a single message pushed to live observers.
type Notification struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// Sink accepts notifications. Implementations must not block the caller
// on slow observers.
type Sink interface {
	Publish(ctx context.Context, n Notification)
}

// Hub fans notifications out to every current subscriber. There is no
// backlog: a subscriber only sees what is published after it joined.
type Hub struct {
	mu               sync.RWMutex
	subs             map[uint64]chan Notification
	nextID           uint64
	subscriberBuffer int
	closed           bool
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan Notification
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan Notification),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(_ context.Context, n Notification) {
	h.broadcast(n)
}

func (h *Hub) broadcast(n Notification) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0
	}

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- n:
			delivered++
		default:
			// subscriber is behind, drop for this one only
		}
	}
	return delivered
}

func (h *Hub) Subscribe() (*Subscription, error) {
	if h == nil {
		return nil, errors.New("hub_unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Notification, h.subscriberBuffer)
	h.subs[id] = ch

	return &Subscription{hub: h, id: id, ch: ch}, nil
}

// Subscribers reports the number of attached observers.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches every subscriber and closes their channels.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
}

// Events is closed when the subscription or the hub is closed.
func (s *Subscription) Events() <-chan Notification {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
