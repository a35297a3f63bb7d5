package events

import (
	"sync"
)

// DefaultStoreCapacity bounds the in-memory event ring.
const DefaultStoreCapacity = 1000

// MemoryEventStore retains the most recent events in a bounded ring buffer.
type MemoryEventStore struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewMemoryEventStore creates a store holding up to capacity events.
// A non-positive capacity falls back to DefaultStoreCapacity.
func NewMemoryEventStore(capacity int) *MemoryEventStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &MemoryEventStore{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Store appends an event, evicting the oldest once capacity is reached.
func (s *MemoryEventStore) Store(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, event)

	return nil
}

// Recent returns up to limit of the most recent events, newest first.
func (s *MemoryEventStore) Recent(limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.events[len(s.events)-1-i]
	}

	return out, nil
}
