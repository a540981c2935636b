package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provchain/internal/platform/middleware"
	"provchain/internal/provenance/models"
	"provchain/internal/provenance/service"
	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

// Service is the engine surface the HTTP adapter needs. The adapter is a
// thin boundary: it parses, delegates, and translates; custody rules live in
// the engine.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*service.RegisterResult, error)
	Transfer(ctx context.Context, req models.TransferRequest) (*service.TransferResult, error)
	GetProduct(ctx context.Context, productID id.ProductID) (*models.ProductHistory, error)
	Verify(ctx context.Context, productID id.ProductID) (*service.VerifyResult, error)
	AuthorizeManufacturer(ctx context.Context, principal, requester string) error
}

// Handler exposes the provenance engine over HTTP.
type Handler struct {
	logger     *slog.Logger
	provenance Service
}

// New creates a provenance Handler.
func New(provenance Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, provenance: provenance}
}

// Register registers the provenance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Post("/products", h.handleRegister)
	router.Get("/products/{productID}", h.handleGetProduct)
	router.Post("/products/{productID}/transfers", h.handleTransfer)
	router.Get("/products/{productID}/verify", h.handleVerify)
	router.Post("/manufacturers", h.handleAuthorize)

	r.Mount("/", router)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	res, err := h.provenance.Register(ctx, req.toModel())
	if err != nil {
		h.logFailure(ctx, "register failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		ProductID:    res.ProductID.String(),
		RegisteredAt: res.RegisteredAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	res, err := h.provenance.Transfer(ctx, models.TransferRequest{
		ProductID:      chi.URLParam(r, "productID"),
		Recipient:      req.Recipient,
		Location:       req.Location,
		AdditionalInfo: req.AdditionalInfo,
		Initiator:      req.Initiator,
	})
	if err != nil {
		h.logFailure(ctx, "transfer failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transferResponse{
		Sequence:      res.Sequence,
		TransferredAt: res.TransferredAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := h.provenance.GetProduct(ctx, productID)
	if err != nil {
		h.logFailure(ctx, "get product failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(history))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.provenance.Verify(ctx, productID)
	if err != nil {
		h.logFailure(ctx, "verify failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVerifyResponse(res))
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.provenance.AuthorizeManufacturer(ctx, req.Principal, req.Requester); err != nil {
		h.logFailure(ctx, "authorize manufacturer failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"principal": req.Principal,
		"status":    "authorized",
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, msg,
		"error", err.Error(),
		"request_id", middleware.GetRequestID(ctx),
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}
