package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

// defaultLockTimeout bounds how long a mutating operation may wait for its
// product lock when the caller supplies no deadline.
const defaultLockTimeout = 5 * time.Second

// productLocks serializes mutating operations per product. Each product gets
// a weighted semaphore of size one; Acquire honors the caller's deadline so
// an exhausted wait surfaces as a timeout with no state change. Operations
// on distinct products never contend.
type productLocks struct {
	mu      sync.Mutex
	timeout time.Duration
	sems    map[id.ProductID]*semaphore.Weighted
}

func newProductLocks(timeout time.Duration) *productLocks {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &productLocks{
		timeout: timeout,
		sems:    make(map[id.ProductID]*semaphore.Weighted),
	}
}

func (l *productLocks) sem(productID id.ProductID) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[productID]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[productID] = s
	}
	return s
}

// Acquire takes the product's exclusive lock. The returned release function
// must be called exactly once.
//
// Errors: CodeTimeout when the deadline expires before the lock is granted.
func (l *productLocks) Acquire(ctx context.Context, productID id.ProductID) (func(), error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	s := l.sem(productID)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for product lock")
	}
	return func() { s.Release(1) }, nil
}
