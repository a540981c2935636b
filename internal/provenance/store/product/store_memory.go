package product

import (
	"context"
	"sync"

	"provchain/internal/provenance/models"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
)

// InMemory holds one record per product identifier.
type InMemory struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
}

func NewInMemory() *InMemory {
	return &InMemory{products: make(map[id.ProductID]*models.Product)}
}

// Create stores a new product record. Returns sentinel.ErrConflict when the
// identifier is already taken.
func (s *InMemory) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

// FindByID returns a copy of the stored record.
func (s *InMemory) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// UpdateOwner moves custody with a compare-and-set on the stored owner.
// Returns sentinel.ErrInvalidState when the owner no longer matches
// expectedOwner, so a stale writer can never clobber a committed transfer.
func (s *InMemory) UpdateOwner(_ context.Context, productID id.ProductID, newOwner, expectedOwner id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.CurrentOwner != expectedOwner {
		return sentinel.ErrInvalidState
	}
	p.CurrentOwner = newOwner
	return nil
}
