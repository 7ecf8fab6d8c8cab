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
	"github.com/construplaza/construplaza-backend/internal/quotes"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

type stubQuoteService struct {
	quote *models.QuoteRequest
	list  []models.QuoteRequest
	next  *pagination.Cursor
	err   error

	lastCreate quotes.CreateInput
}

func (s *stubQuoteService) Create(ctx context.Context, input quotes.CreateInput) (*models.QuoteRequest, error) {
	s.lastCreate = input
	return s.quote, s.err
}

func (s *stubQuoteService) Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	return s.quote, s.err
}

func (s *stubQuoteService) Respond(ctx context.Context, input quotes.RespondInput) (*models.QuoteRequest, error) {
	return s.quote, s.err
}

func (s *stubQuoteService) Close(ctx context.Context, id, callerID uuid.UUID) (*models.QuoteRequest, error) {
	return s.quote, s.err
}

func (s *stubQuoteService) ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error) {
	return s.list, s.next, s.err
}

func (s *stubQuoteService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error) {
	return s.list, s.next, s.err
}

func testQuote(buyerID, supplierID uuid.UUID) *models.QuoteRequest {
	return &models.QuoteRequest{
		ID:         uuid.New(),
		SupplierID: supplierID,
		BuyerID:    buyerID,
		Message:    "Necesito cemento para obra en Santiago",
		Items:      json.RawMessage(`[{"description":"Cemento gris","quantity":200,"unit":"fundas"}]`),
		Status:     enums.QuoteStatusOpen,
		CreatedAt:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestQuoteCreateSuccess(t *testing.T) {
	buyerID := uuid.New()
	supplierID := uuid.New()
	svc := &stubQuoteService{quote: testQuote(buyerID, supplierID)}
	handler := QuoteCreate(svc, testLogger(t))

	body := []byte(`{"supplier_id":"` + supplierID.String() + `","message":"Necesito cemento","items":[{"description":"Cemento gris","quantity":200,"unit":"fundas"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), buyerID.String())
	ctx = middleware.WithRole(ctx, "buyer")
	req = req.WithContext(ctx)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}
	if svc.lastCreate.BuyerID != buyerID {
		t.Fatalf("expected buyer %s got %s", buyerID, svc.lastCreate.BuyerID)
	}
	if svc.lastCreate.SupplierID != supplierID {
		t.Fatalf("expected supplier %s got %s", supplierID, svc.lastCreate.SupplierID)
	}
	if len(svc.lastCreate.Items) != 1 || svc.lastCreate.Items[0].Quantity != 200 {
		t.Fatalf("unexpected items %+v", svc.lastCreate.Items)
	}
	if svc.lastCreate.Actor == nil || svc.lastCreate.Actor.UserID != buyerID {
		t.Fatalf("expected actor attribution got %+v", svc.lastCreate.Actor)
	}
}

func TestQuoteCreateRequiresIdentity(t *testing.T) {
	handler := QuoteCreate(&stubQuoteService{}, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestQuoteCreateRejectsEmptyItems(t *testing.T) {
	buyerID := uuid.New()
	handler := QuoteCreate(&stubQuoteService{}, testLogger(t))

	body := []byte(`{"supplier_id":"` + uuid.New().String() + `","items":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestQuoteRespondRequiresSupplier(t *testing.T) {
	handler := QuoteRespond(&stubQuoteService{}, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/"+uuid.New().String()+"/respond", bytes.NewReader([]byte(`{"response":"Disponible"}`)))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New().String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestQuoteRespondSuccess(t *testing.T) {
	buyerID := uuid.New()
	supplierID := uuid.New()
	quote := testQuote(buyerID, supplierID)
	quote.Status = enums.QuoteStatusResponded
	response := "Tenemos 200 fundas disponibles"
	quote.Response = &response

	handler := QuoteRespond(&stubQuoteService{quote: quote}, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/"+quote.ID.String()+"/respond", bytes.NewReader([]byte(`{"response":"Tenemos 200 fundas disponibles"}`)))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("quoteId", quote.ID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithUserID(ctx, uuid.New().String())
	ctx = middleware.WithSupplierID(ctx, supplierID.String())
	req = req.WithContext(ctx)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data quoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "responded" {
		t.Fatalf("expected responded got %s", envelope.Data.Status)
	}
}

func TestQuoteListForBuyerRejectsBadStatus(t *testing.T) {
	handler := QuoteListForBuyer(&stubQuoteService{}, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?status=pending", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New().String()))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestQuoteListForSupplierReturnsCursor(t *testing.T) {
	buyerID := uuid.New()
	supplierID := uuid.New()
	quote := testQuote(buyerID, supplierID)
	next := &pagination.Cursor{CreatedAt: quote.CreatedAt, ID: quote.ID}

	handler := QuoteListForSupplier(&stubQuoteService{
		list: []models.QuoteRequest{*quote},
		next: next,
	}, testLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/inbox?limit=1", nil)
	ctx := middleware.WithUserID(req.Context(), uuid.New().String())
	ctx = middleware.WithSupplierID(ctx, supplierID.String())
	req = req.WithContext(ctx)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Items  []quoteResponse `json:"items"`
			Cursor *cursorResponse `json:"cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(envelope.Data.Items))
	}
	if envelope.Data.Cursor == nil || envelope.Data.Cursor.ID != quote.ID {
		t.Fatalf("expected cursor for %s got %+v", quote.ID, envelope.Data.Cursor)
	}
}
