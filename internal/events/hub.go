// Package events fans engine events out to subscribers and appends them to
// the analytics trail.
package events

import (
	"context"
	"log"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// subscriberBuffer bounds each subscriber's queue. A subscriber that falls
// this far behind starts losing events rather than blocking the engine.
const subscriberBuffer = 64

// Hub broadcasts distribution events. The zero store is allowed; events are
// then fan-out only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan domain.DistributionEvent]struct{}
	store  storage.EventStore
	logger *log.Logger
}

// NewHub creates a Hub. store may be nil to skip the analytics trail.
func NewHub(store storage.EventStore, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[events] ", log.LstdFlags)
	}
	return &Hub{
		subs:   make(map[chan domain.DistributionEvent]struct{}),
		store:  store,
		logger: logger,
	}
}

// Subscribe registers a new subscriber channel.
func (h *Hub) Subscribe() chan domain.DistributionEvent {
	ch := make(chan domain.DistributionEvent, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan domain.DistributionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish appends the event to the trail and delivers it to every
// subscriber. Slow subscribers lose the event instead of blocking.
func (h *Hub) Publish(ctx context.Context, e domain.DistributionEvent) {
	if h.store != nil {
		if err := h.store.Insert(ctx, &e); err != nil {
			h.logger.Printf("record event %s: %v", e.Kind, err)
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
