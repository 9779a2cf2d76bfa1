package realtime

import (
	"sync"

	"github.com/festivo/messaging-service/internal/model"
)

// Hub routes newly inserted messages to the live subscription of their
// receiver. One live subscription per user; a new Subscribe closes the prior
// handle. No dedupe is promised here; that is the session's responsibility.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers fn for every message addressed to userID, replacing
// any existing subscription for that user.
func (h *Hub) Subscribe(userID string, fn func(model.Message)) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		fn:     fn,
	}

	h.mu.Lock()
	if old, ok := h.subs[userID]; ok {
		old.markClosed()
	}
	h.subs[userID] = sub
	h.mu.Unlock()

	return sub
}

// Publish delivers msg to the receiver's subscription, if any, in arrival
// order.
func (h *Hub) Publish(msg model.Message) {
	h.mu.RLock()
	sub := h.subs[msg.ReceiverID]
	h.mu.RUnlock()

	if sub != nil {
		sub.deliver(msg)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if h.subs[sub.userID] == sub {
		delete(h.subs, sub.userID)
	}
	h.mu.Unlock()
}

// Subscription is a disposable handle for one user's live feed.
type Subscription struct {
	hub    *Hub
	userID string
	fn     func(model.Message)

	mu     sync.Mutex
	closed bool
}

func (s *Subscription) deliver(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.fn(msg)
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Close stops further deliveries. Closing an already-closed handle is a
// no-op.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.remove(s)
}
