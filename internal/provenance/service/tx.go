package service

import "context"

// TxRunner is the atomic commit boundary for a single engine operation. The
// postgres implementation opens one database transaction and places it in
// context so every participating store writes through it; the in-memory
// implementation is a passthrough, relying on the engine's per-product lock
// for atomicity.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// passthroughTx runs the function directly. Used with the in-memory stores,
// where the product lock already makes the multi-store mutation atomic with
// respect to every other engine operation.
type passthroughTx struct{}

// NewPassthroughTx returns a TxRunner for non-transactional store stacks.
func NewPassthroughTx() TxRunner {
	return passthroughTx{}
}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
