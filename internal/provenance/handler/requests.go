package handler

import (
	"time"

	"provchain/internal/provenance/models"
	"provchain/internal/provenance/service"
)

// Wire types for the HTTP boundary. Timestamps are rendered as RFC 3339 here
// and persisted as epoch seconds below; the adapter owns the translation.

type registerRequest struct {
	ProductName       string `json:"product_name"`
	Manufacturer      string `json:"manufacturer"`
	ManufacturingDate string `json:"manufacturing_date"`
	BatchNumber       string `json:"batch_number"`
	RegisteredBy      string `json:"registered_by"`
}

func (r registerRequest) toModel() models.RegisterRequest {
	return models.RegisterRequest{
		Name:              r.ProductName,
		Manufacturer:      r.Manufacturer,
		ManufacturingDate: r.ManufacturingDate,
		BatchNumber:       r.BatchNumber,
		RegisteredBy:      r.RegisteredBy,
	}
}

type registerResponse struct {
	ProductID    string `json:"product_id"`
	RegisteredAt string `json:"registered_at"`
}

type transferRequest struct {
	Recipient      string `json:"recipient"`
	Location       string `json:"location"`
	AdditionalInfo string `json:"additional_info"`
	Initiator      string `json:"initiator"`
}

type transferResponse struct {
	Sequence      int    `json:"sequence"`
	TransferredAt string `json:"transferred_at"`
}

type transferRecord struct {
	Sequence       int    `json:"sequence"`
	From           string `json:"from"`
	To             string `json:"to"`
	TransferredAt  string `json:"transferred_at"`
	Location       string `json:"location"`
	AdditionalInfo string `json:"additional_info"`
}

type productResponse struct {
	ProductID         string           `json:"product_id"`
	ProductName       string           `json:"product_name"`
	Manufacturer      string           `json:"manufacturer"`
	ManufacturingDate string           `json:"manufacturing_date"`
	BatchNumber       string           `json:"batch_number"`
	RegisteredBy      string           `json:"registered_by"`
	RegisteredAt      string           `json:"registered_at"`
	IsActive          bool             `json:"is_active"`
	CurrentOwner      string           `json:"current_owner"`
	Transfers         []transferRecord `json:"transfers"`
}

func toProductResponse(h *models.ProductHistory) productResponse {
	transfers := make([]transferRecord, len(h.Transfers))
	for i, t := range h.Transfers {
		transfers[i] = transferRecord{
			Sequence:       t.Sequence,
			From:           t.From.String(),
			To:             t.To.String(),
			TransferredAt:  t.TransferredAt.Format(time.RFC3339),
			Location:       t.Location,
			AdditionalInfo: t.AdditionalInfo,
		}
	}
	p := h.Product
	return productResponse{
		ProductID:         p.ID.String(),
		ProductName:       p.Name,
		Manufacturer:      p.Manufacturer,
		ManufacturingDate: p.ManufacturingDate,
		BatchNumber:       p.BatchNumber,
		RegisteredBy:      p.RegisteredBy.String(),
		RegisteredAt:      p.RegisteredAt.Format(time.RFC3339),
		IsActive:          p.IsActive,
		CurrentOwner:      p.CurrentOwner.String(),
		Transfers:         transfers,
	}
}

type verifyResponse struct {
	IsAuthentic  bool   `json:"is_authentic"`
	CurrentOwner string `json:"current_owner"`
}

func toVerifyResponse(res *service.VerifyResult) verifyResponse {
	return verifyResponse{
		IsAuthentic:  res.IsAuthentic,
		CurrentOwner: res.CurrentOwner.String(),
	}
}

type authorizeRequest struct {
	Principal string `json:"principal"`
	Requester string `json:"requester"`
}
