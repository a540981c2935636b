package models

import (
	"strings"

	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

// RegisterRequest carries the caller-supplied fields for registering a
// product. The product identifier is generated by the engine, never taken
// from the request.
type RegisterRequest struct {
	Name              string
	Manufacturer      string
	ManufacturingDate string
	BatchNumber       string
	RegisteredBy      string
}

// Normalize trims whitespace from all fields.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Manufacturer = strings.TrimSpace(r.Manufacturer)
	r.ManufacturingDate = strings.TrimSpace(r.ManufacturingDate)
	r.BatchNumber = strings.TrimSpace(r.BatchNumber)
	r.RegisteredBy = strings.TrimSpace(r.RegisteredBy)
}

// Principal parses the acting principal.
func (r *RegisterRequest) Principal() (id.Principal, error) {
	p, err := id.ParsePrincipal(r.RegisteredBy)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "registered_by is invalid")
	}
	return p, nil
}

// TransferRequest carries the caller-supplied fields for a custody transfer.
// The initiator must be the product's current custodian; the engine rejects
// anyone else.
type TransferRequest struct {
	ProductID      string
	Recipient      string
	Location       string
	AdditionalInfo string
	Initiator      string
}

// Normalize trims whitespace from all fields.
func (r *TransferRequest) Normalize() {
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.Recipient = strings.TrimSpace(r.Recipient)
	r.Location = strings.TrimSpace(r.Location)
	r.AdditionalInfo = strings.TrimSpace(r.AdditionalInfo)
	r.Initiator = strings.TrimSpace(r.Initiator)
}

// Parse validates and converts the request into typed values.
func (r *TransferRequest) Parse() (id.ProductID, id.Principal, id.Principal, error) {
	productID, err := id.ParseProductID(r.ProductID)
	if err != nil {
		return productID, "", "", err
	}
	recipient, err := id.ParsePrincipal(r.Recipient)
	if err != nil {
		return productID, "", "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "recipient is invalid")
	}
	initiator, err := id.ParsePrincipal(r.Initiator)
	if err != nil {
		return productID, "", "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "initiator is invalid")
	}
	return productID, recipient, initiator, nil
}
