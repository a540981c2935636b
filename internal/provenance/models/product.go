package models

import (
	"strings"
	"time"

	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

// Product is the aggregate root for one physical item.
//
// Invariants:
//   - ID is unique across the store for the lifetime of the system
//   - RegisteredBy was an authorized manufacturer at registration time
//   - CurrentOwner equals the `to` field of the most recent committed
//     transfer, or RegisteredBy when no transfer has occurred
//   - Name, Manufacturer, ManufacturingDate, BatchNumber, RegisteredBy and
//     RegisteredAt are immutable after construction
//
// Only the engine mutates CurrentOwner, and only after the matching ledger
// append has committed. Products are never deleted; there is currently no
// deactivation operation, so IsActive stays true until one is added.
type Product struct {
	ID                id.ProductID `json:"product_id"`
	Name              string       `json:"product_name"`
	Manufacturer      string       `json:"manufacturer"`
	ManufacturingDate string       `json:"manufacturing_date"`
	BatchNumber       string       `json:"batch_number"`
	RegisteredBy      id.Principal `json:"registered_by"`
	RegisteredAt      time.Time    `json:"registered_at"`
	IsActive          bool         `json:"is_active"`
	CurrentOwner      id.Principal `json:"current_owner"`
}

const (
	maxNameLen  = 256
	maxFieldLen = 512
)

// NewProduct constructs a Product owned by its registering manufacturer.
func NewProduct(productID id.ProductID, name, manufacturer, manufacturingDate, batchNumber string, registeredBy id.Principal, now time.Time) (*Product, error) {
	name = strings.TrimSpace(name)
	manufacturer = strings.TrimSpace(manufacturer)
	if productID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product name cannot be empty")
	}
	if len(name) > maxNameLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product name must be 256 characters or less")
	}
	if manufacturer == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "manufacturer cannot be empty")
	}
	if len(manufacturer) > maxFieldLen || len(manufacturingDate) > maxFieldLen || len(batchNumber) > maxFieldLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "field must be 512 characters or less")
	}
	if registeredBy.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registering principal is required")
	}
	return &Product{
		ID:                productID,
		Name:              name,
		Manufacturer:      manufacturer,
		ManufacturingDate: strings.TrimSpace(manufacturingDate),
		BatchNumber:       strings.TrimSpace(batchNumber),
		RegisteredBy:      registeredBy,
		RegisteredAt:      now.UTC(),
		IsActive:          true,
		CurrentOwner:      registeredBy,
	}, nil
}

// ProductHistory bundles a product with its complete custody chain, taken as
// one consistent snapshot.
type ProductHistory struct {
	Product   *Product    `json:"product"`
	Transfers []*Transfer `json:"transfers"`
}

// Consistent reports whether the snapshot obeys the custody invariant: the
// product owner equals the tail of the transfer chain (or the registering
// principal when the chain is empty).
func (h *ProductHistory) Consistent() bool {
	if h.Product == nil {
		return false
	}
	if len(h.Transfers) == 0 {
		return h.Product.CurrentOwner == h.Product.RegisteredBy
	}
	return h.Product.CurrentOwner == h.Transfers[len(h.Transfers)-1].To
}
