package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is the outbox used in tests and when no database is
// configured.
type InMemoryStore struct {
	mu      sync.Mutex
	pending []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, event)
	return nil
}

func (s *InMemoryStore) ListPending(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	return append([]Event{}, s.pending[:limit]...), nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	published := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		published[id] = true
	}
	remaining := s.pending[:0]
	for _, e := range s.pending {
		if !published[e.ID] {
			remaining = append(remaining, e)
		}
	}
	s.pending = remaining
	return nil
}
