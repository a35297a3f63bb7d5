package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryEventBus implements EventBus with synchronous in-process delivery.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]EventHandler // subscriptionID -> handler
	store       EventStore
}

// NewEventBus creates a new InMemoryEventBus. The store may be nil, in
// which case events are delivered but not retained.
func NewEventBus(store EventStore) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]EventHandler),
		store:       store,
	}
}

// Publish stores the event (when a store is configured) and delivers it to
// every subscriber. Delivery is synchronous; handlers that need to block
// should hand off to their own goroutine.
func (eb *InMemoryEventBus) Publish(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event must have a type")
	}

	if eb.store != nil {
		// Retention is best-effort; delivery still proceeds.
		_ = eb.store.Store(event)
	}

	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.subscribers))
	for _, handler := range eb.subscribers {
		handlers = append(handlers, handler)
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}

	return nil
}

// Subscribe registers a handler for all published events. The returned
// function removes the subscription.
func (eb *InMemoryEventBus) Subscribe(handler EventHandler) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriptionID := uuid.New().String()
	eb.subscribers[subscriptionID] = handler

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.subscribers, subscriptionID)
	}
}

// SubscriberCount returns the number of registered subscribers. Useful for
// tests and monitoring.
func (eb *InMemoryEventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}
