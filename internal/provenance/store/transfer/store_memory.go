package transfer

import (
	"context"
	"sync"

	"provchain/internal/provenance/models"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
)

// InMemory keeps a per-product ordered sequence of custody events. The type
// exposes no update or delete methods; committed transfers are immutable.
type InMemory struct {
	mu        sync.RWMutex
	transfers map[id.ProductID][]*models.Transfer
}

func NewInMemory() *InMemory {
	return &InMemory{transfers: make(map[id.ProductID][]*models.Transfer)}
}

// Append commits the transfer at the next sequence index and returns that
// 0-based index.
func (s *InMemory) Append(_ context.Context, t *models.Transfer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := len(s.transfers[t.ProductID])
	cp := *t
	cp.Sequence = seq
	s.transfers[t.ProductID] = append(s.transfers[t.ProductID], &cp)
	return seq, nil
}

// Count returns the number of committed transfers for a product, 0 if none.
func (s *InMemory) Count(_ context.Context, productID id.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transfers[productID]), nil
}

// Get returns the transfer at the given sequence index.
func (s *InMemory) Get(_ context.Context, productID id.ProductID, index int) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.transfers[productID]
	if index < 0 || index >= len(seq) {
		return nil, sentinel.ErrNotFound
	}
	cp := *seq[index]
	return &cp, nil
}

// ListByProduct returns the full history in commit order in a single pass.
func (s *InMemory) ListByProduct(_ context.Context, productID id.ProductID) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.transfers[productID]
	out := make([]*models.Transfer, len(seq))
	for i, t := range seq {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}
