package domain

import (
	"github.com/google/uuid"

	dErrors "provchain/pkg/domain-errors"
)

// ProductID identifies one physical product for the lifetime of the system.
// Invariant: IDs are valid, non-nil UUIDs and are generated by the engine,
// never supplied by clients (128-bit random, negligible collision odds).
//
// Usage: construct via NewProductID inside the engine, or ParseProductID at
// trust boundaries; direct casting bypasses validation.
type ProductID uuid.UUID

// NewProductID generates a fresh random product identifier.
func NewProductID() ProductID {
	return ProductID(uuid.New())
}

// ParseProductID constructs a ProductID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseProductID(s string) (ProductID, error) {
	if s == "" {
		return ProductID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "product id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ProductID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "product id must be a valid UUID")
	}
	if u == uuid.Nil {
		return ProductID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "product id cannot be the nil UUID")
	}
	return ProductID(u), nil
}

func (p ProductID) String() string {
	return uuid.UUID(p).String()
}

// IsNil reports whether the ID is the zero UUID.
func (p ProductID) IsNil() bool {
	return uuid.UUID(p) == uuid.Nil
}

// MarshalText renders the ID in canonical UUID form for JSON and logs.
func (p ProductID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts any well-formed UUID, including the nil UUID, since
// stored payloads may legitimately carry a zero ID. Request boundaries use
// ParseProductID for the stricter check.
func (p *ProductID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*p = ProductID(u)
	return nil
}
