package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/api/middleware"
	"github.com/construplaza/construplaza-backend/internal/reviews"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

type stubReviewService struct {
	review *models.Review
	list   []models.Review
	next   *pagination.Cursor
	err    error

	lastCreate reviews.CreateInput
}

func (s *stubReviewService) Create(ctx context.Context, input reviews.CreateInput) (*models.Review, error) {
	s.lastCreate = input
	return s.review, s.err
}

func (s *stubReviewService) ListForSupplier(ctx context.Context, supplierID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	return s.list, s.next, s.err
}

func TestReviewCreateSuccess(t *testing.T) {
	buyerID := uuid.New()
	supplierID := uuid.New()
	svc := &stubReviewService{review: &models.Review{
		ID:         uuid.New(),
		SupplierID: supplierID,
		BuyerID:    buyerID,
		Rating:     5,
		Comment:    "Entrega puntual y buen precio",
		CreatedAt:  time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	}}
	handler := ReviewCreate(svc, testLogger(t))

	body := []byte(`{"supplier_id":"` + supplierID.String() + `","rating":5,"comment":"Entrega puntual y buen precio"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}
	if svc.lastCreate.BuyerID != buyerID || svc.lastCreate.SupplierID != supplierID {
		t.Fatalf("unexpected create input %+v", svc.lastCreate)
	}
	if svc.lastCreate.Rating != 5 {
		t.Fatalf("expected rating 5 got %d", svc.lastCreate.Rating)
	}
}

func TestReviewCreateRejectsOutOfRangeRating(t *testing.T) {
	handler := ReviewCreate(&stubReviewService{}, testLogger(t))

	body := []byte(`{"supplier_id":"` + uuid.New().String() + `","rating":6}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New().String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestReviewCreateWithoutCompletedQuote(t *testing.T) {
	handler := ReviewCreate(&stubReviewService{
		err: pkgerrors.New(pkgerrors.CodeForbidden, "reviews require a completed quote with the supplier"),
	}, testLogger(t))

	body := []byte(`{"supplier_id":"` + uuid.New().String() + `","rating":4}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New().String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPublicReviewList(t *testing.T) {
	supplierID := uuid.New()
	handler := PublicReviewList(&stubReviewService{list: []models.Review{
		{ID: uuid.New(), SupplierID: supplierID, BuyerID: uuid.New(), Rating: 4},
		{ID: uuid.New(), SupplierID: supplierID, BuyerID: uuid.New(), Rating: 5},
	}}, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/public/suppliers/"+supplierID.String()+"/reviews", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("supplierId", supplierID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Items []reviewResponse `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 2 {
		t.Fatalf("expected 2 reviews got %d", len(envelope.Data.Items))
	}
}

func TestPublicReviewListRejectsBadSupplierID(t *testing.T) {
	handler := PublicReviewList(&stubReviewService{}, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/public/suppliers/not-a-uuid/reviews", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("supplierId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
