package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provchain/internal/provenance/handler/mocks"
	"provchain/internal/provenance/models"
	"provchain/internal/provenance/service"
	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *HandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newTestHandler(t *testing.T) (*chi.Mux, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestRegisterProduct() {
	router, mockService := newTestHandler(s.T())
	productID := id.NewProductID()
	registeredAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	mockService.EXPECT().Register(gomock.Any(), models.RegisterRequest{
		Name:              "Sumatra Beans 1kg",
		Manufacturer:      "Acme Coffee Co",
		ManufacturingDate: "2026-03-01",
		BatchNumber:       "B-1204",
		RegisteredBy:      "0xACME",
	}).Return(&service.RegisterResult{ProductID: productID, RegisteredAt: registeredAt}, nil)

	rec := doJSON(s.T(), router, http.MethodPost, "/products", map[string]string{
		"product_name":       "Sumatra Beans 1kg",
		"manufacturer":       "Acme Coffee Co",
		"manufacturing_date": "2026-03-01",
		"batch_number":       "B-1204",
		"registered_by":      "0xACME",
	})

	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var resp registerResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), productID.String(), resp.ProductID)
	assert.Equal(s.T(), "2026-03-14T09:26:53Z", resp.RegisteredAt)
}

func (s *HandlerSuite) TestRegisterInvalidBody() {
	router, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRegisterUnauthorized() {
	router, mockService := newTestHandler(s.T())

	mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "principal is not an authorized manufacturer"))

	rec := doJSON(s.T(), router, http.MethodPost, "/products", map[string]string{
		"product_name":  "Beans",
		"manufacturer":  "Acme",
		"registered_by": "0xNOBODY",
	})

	require.Equal(s.T(), http.StatusForbidden, rec.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), "unauthorized", resp["error"])
}

func (s *HandlerSuite) TestTransfer() {
	router, mockService := newTestHandler(s.T())
	productID := id.NewProductID()
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	mockService.EXPECT().Transfer(gomock.Any(), models.TransferRequest{
		ProductID:      productID.String(),
		Recipient:      "0xDIST",
		Location:       "Rotterdam",
		AdditionalInfo: "pallet 7",
		Initiator:      "0xACME",
	}).Return(&service.TransferResult{Sequence: 0, TransferredAt: at}, nil)

	rec := doJSON(s.T(), router, http.MethodPost, "/products/"+productID.String()+"/transfers", map[string]string{
		"recipient":       "0xDIST",
		"location":        "Rotterdam",
		"additional_info": "pallet 7",
		"initiator":       "0xACME",
	})

	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var resp transferResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), 0, resp.Sequence)
	assert.Equal(s.T(), "2026-03-15T12:00:00Z", resp.TransferredAt)
}

func (s *HandlerSuite) TestTransferErrorMapping() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "product not found"), http.StatusNotFound},
		{"not custodian", dErrors.New(dErrors.CodeUnauthorized, "initiator is not the current custodian"), http.StatusForbidden},
		{"inactive", dErrors.New(dErrors.CodeInvalidState, "product is inactive"), http.StatusConflict},
		{"lock timeout", dErrors.New(dErrors.CodeTimeout, "timed out waiting for product lock"), http.StatusServiceUnavailable},
		{"storage", dErrors.New(dErrors.CodeInternal, "failed to append transfer"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, mockService := newTestHandler(s.T())
			mockService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			rec := doJSON(s.T(), router, http.MethodPost, "/products/"+id.NewProductID().String()+"/transfers", map[string]string{
				"recipient": "0xDIST",
				"initiator": "0xACME",
			})
			assert.Equal(s.T(), tc.status, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestGetProduct() {
	router, mockService := newTestHandler(s.T())
	productID := id.NewProductID()
	registeredAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	history := &models.ProductHistory{
		Product: &models.Product{
			ID:           productID,
			Name:         "Sumatra Beans 1kg",
			Manufacturer: "Acme Coffee Co",
			RegisteredBy: "0xACME",
			RegisteredAt: registeredAt,
			IsActive:     true,
			CurrentOwner: "0xDIST",
		},
		Transfers: []*models.Transfer{{
			ProductID:     productID,
			Sequence:      0,
			From:          "0xACME",
			To:            "0xDIST",
			TransferredAt: registeredAt.Add(24 * time.Hour),
			Location:      "Rotterdam",
		}},
	}
	mockService.EXPECT().GetProduct(gomock.Any(), productID).Return(history, nil)

	rec := doJSON(s.T(), router, http.MethodGet, "/products/"+productID.String(), nil)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp productResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), productID.String(), resp.ProductID)
	assert.Equal(s.T(), "0xDIST", resp.CurrentOwner)
	require.Len(s.T(), resp.Transfers, 1)
	assert.Equal(s.T(), "0xACME", resp.Transfers[0].From)
}

func (s *HandlerSuite) TestGetProductBadID() {
	router, _ := newTestHandler(s.T())
	rec := doJSON(s.T(), router, http.MethodGet, "/products/not-a-uuid", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestVerify() {
	router, mockService := newTestHandler(s.T())
	productID := id.NewProductID()

	mockService.EXPECT().Verify(gomock.Any(), productID).
		Return(&service.VerifyResult{IsAuthentic: true, CurrentOwner: "0xDIST"}, nil)

	rec := doJSON(s.T(), router, http.MethodGet, "/products/"+productID.String()+"/verify", nil)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp verifyResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(s.T(), resp.IsAuthentic)
	assert.Equal(s.T(), "0xDIST", resp.CurrentOwner)
}

func (s *HandlerSuite) TestAuthorizeManufacturer() {
	router, mockService := newTestHandler(s.T())

	mockService.EXPECT().AuthorizeManufacturer(gomock.Any(), "0xACME", "0xROOT").Return(nil)

	rec := doJSON(s.T(), router, http.MethodPost, "/manufacturers", map[string]string{
		"principal": "0xACME",
		"requester": "0xROOT",
	})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), "authorized", resp["status"])
}
