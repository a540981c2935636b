package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "provchain/pkg/domain"
)

// Type labels a custody event on the outbound stream.
type Type string

const (
	TypeProductRegistered      Type = "product.registered"
	TypeProductTransferred     Type = "product.transferred"
	TypeManufacturerAuthorized Type = "manufacturer.authorized"
)

// Event is emitted from the engine after a commit. It is an observability
// side-channel: ledger correctness never depends on delivery. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID    `json:"id"`
	Type      Type         `json:"type"`
	ProductID id.ProductID `json:"product_id,omitempty"`
	Actor     id.Principal `json:"actor"`
	Owner     id.Principal `json:"owner,omitempty"`
	Sequence  int          `json:"sequence,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Store is the outbox: events wait here until a worker drains them to the
// stream. Append-only from the publisher's point of view.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListPending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}
