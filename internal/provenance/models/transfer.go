package models

import (
	"strings"
	"time"

	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

// Transfer is one custody-change event, immutable once committed.
//
// Invariants:
//   - From equals the product's CurrentOwner at commit time (enforced by the
//     engine, not merely recorded)
//   - the per-product sequence, ordered by Sequence, forms an unbroken chain
//     where each From equals the previous event's To
//   - transfers are append-only: never edited or removed, and the sequence
//     index is permanent
type Transfer struct {
	ProductID      id.ProductID `json:"product_id"`
	Sequence       int          `json:"sequence"`
	From           id.Principal `json:"from"`
	To             id.Principal `json:"to"`
	TransferredAt  time.Time    `json:"transferred_at"`
	Location       string       `json:"location"`
	AdditionalInfo string       `json:"additional_info"`
}

// NewTransfer constructs a custody event ready for appending. The sequence
// index is assigned by the ledger on append.
func NewTransfer(productID id.ProductID, from, to id.Principal, location, additionalInfo string, now time.Time) (*Transfer, error) {
	if productID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product id is required")
	}
	if from.IsZero() || to.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "transfer requires both custodian and recipient")
	}
	if from == to {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient must differ from current custodian")
	}
	if len(location) > maxFieldLen || len(additionalInfo) > maxFieldLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "field must be 512 characters or less")
	}
	return &Transfer{
		ProductID:      productID,
		From:           from,
		To:             to,
		TransferredAt:  now.UTC(),
		Location:       strings.TrimSpace(location),
		AdditionalInfo: strings.TrimSpace(additionalInfo),
	}, nil
}
