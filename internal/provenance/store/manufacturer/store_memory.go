package manufacturer

import (
	"context"
	"sync"
	"time"

	id "provchain/pkg/domain"
)

// InMemory tracks authorized manufacturers as a monotonic set. There is no
// removal path; the set only grows.
type InMemory struct {
	mu         sync.RWMutex
	principals map[id.Principal]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{principals: make(map[id.Principal]time.Time)}
}

// Authorize adds the principal to the set. Re-authorizing is a no-op and
// keeps the original authorization time.
func (s *InMemory) Authorize(_ context.Context, principal id.Principal, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.principals[principal]; !ok {
		s.principals[principal] = now.UTC()
	}
	return nil
}

// IsAuthorized reports set membership. Pure query, no side effects.
func (s *InMemory) IsAuthorized(_ context.Context, principal id.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.principals[principal]
	return ok, nil
}
