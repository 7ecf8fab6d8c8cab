package quotes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type stubRepo struct {
	quotes  map[uuid.UUID]*models.QuoteRequest
	created *models.QuoteRequest
	updated *models.QuoteRequest
}

func newStubRepo() *stubRepo {
	return &stubRepo{quotes: map[uuid.UUID]*models.QuoteRequest{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, quote *models.QuoteRequest) error {
	s.created = quote
	s.quotes[quote.ID] = quote
	return nil
}
func (s *stubRepo) Update(ctx context.Context, quote *models.QuoteRequest) error {
	s.updated = quote
	s.quotes[quote.ID] = quote
	return nil
}
func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	quote, ok := s.quotes[id]
	if !ok {
		return nil, nil
	}
	copied := *quote
	return &copied, nil
}
func (s *stubRepo) List(ctx context.Context, params ListQuery) ([]models.QuoteRequest, *pagination.Cursor, error) {
	var out []models.QuoteRequest
	for _, quote := range s.quotes {
		if params.SupplierID != nil && quote.SupplierID != *params.SupplierID {
			continue
		}
		if params.BuyerID != nil && quote.BuyerID != *params.BuyerID {
			continue
		}
		out = append(out, *quote)
	}
	return out, nil, nil
}
func (s *stubRepo) HasCompletedQuote(ctx context.Context, buyerID, supplierID uuid.UUID) (bool, error) {
	return false, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type captureEmitter struct {
	events []outbox.EmitInput
}

func (c *captureEmitter) Emit(tx *gorm.DB, input outbox.EmitInput) error {
	c.events = append(c.events, input)
	return nil
}

type stubQuotas struct {
	calls int
	err   error
}

func (s *stubQuotas) ConsumeQuotaTx(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, resource plans.Resource) error {
	s.calls++
	return s.err
}

type stubSuppliers struct {
	supplier *models.Supplier
}

func (s *stubSuppliers) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	return s.supplier, nil
}

type fixture struct {
	svc     *Service
	repo    *stubRepo
	quotas  *stubQuotas
	emitter *captureEmitter
}

func newFixture(t *testing.T, supplier *models.Supplier) *fixture {
	t.Helper()
	repo := newStubRepo()
	quotas := &stubQuotas{}
	emitter := &captureEmitter{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		DB:        stubTxRunner{},
		Outbox:    emitter,
		Quotas:    quotas,
		Suppliers: &stubSuppliers{supplier: supplier},
		Logger:    logger.New(logger.Options{ServiceName: "quotes-test"}),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, quotas: quotas, emitter: emitter}
}

func testSupplier() *models.Supplier {
	return &models.Supplier{ID: uuid.New(), Name: "Ferretería Central"}
}

func validCreateInput(supplierID uuid.UUID) CreateInput {
	return CreateInput{
		BuyerID:    uuid.New(),
		SupplierID: supplierID,
		Message:    "Precios para obra en Santiago",
		Items: []QuoteItem{
			{Description: "Cemento gris 42.5", Quantity: 200, Unit: "funda"},
			{Description: "Varilla 3/8", Quantity: 500, Unit: "unidad"},
		},
	}
}

func TestCreateChargesQuotaAndEmitsEvent(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)

	quote, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}
	if quote.Status != enums.QuoteStatusOpen {
		t.Fatalf("status = %s, want open", quote.Status)
	}
	if !strings.Contains(string(quote.Items), "Cemento gris") {
		t.Fatalf("items not serialized: %s", quote.Items)
	}
	if f.quotas.calls != 1 {
		t.Fatalf("quota consumed %d times, want 1", f.quotas.calls)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.OutboxEventQuoteRequested {
		t.Fatalf("expected one quote.requested event, got %+v", f.emitter.events)
	}
}

func TestCreateRejectedWhenQuotaExhausted(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	f.quotas.err = pkgerrors.New(pkgerrors.CodePlanLimit, "quote limit reached")

	_, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if pkgerrors.As(err).Code() != pkgerrors.CodePlanLimit {
		t.Fatalf("expected plan limit error, got %v", err)
	}
	if f.repo.created != nil {
		t.Fatalf("quote should not be created when quota is exhausted")
	}
	if len(f.emitter.events) != 0 {
		t.Fatalf("no event expected, got %d", len(f.emitter.events))
	}
}

func TestCreateRejectsMissingSupplier(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), validCreateInput(uuid.New()))
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateValidatesItems(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)

	cases := []struct {
		name  string
		items []QuoteItem
	}{
		{"empty", nil},
		{"blank description", []QuoteItem{{Description: "  ", Quantity: 1}}},
		{"zero quantity", []QuoteItem{{Description: "Cemento", Quantity: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput(supplier.ID)
			input.Items = tc.items
			_, err := f.svc.Create(context.Background(), input)
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRespondMovesQuoteToResponded(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	quote, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}

	responded, err := f.svc.Respond(context.Background(), RespondInput{
		QuoteID:    quote.ID,
		SupplierID: supplier.ID,
		Response:   "Cemento a 420 DOP la funda, entrega en 3 días.",
	})
	if err != nil {
		t.Fatalf("responding: %v", err)
	}
	if responded.Status != enums.QuoteStatusResponded {
		t.Fatalf("status = %s, want responded", responded.Status)
	}
	if responded.RespondedAt == nil || !responded.RespondedAt.Equal(testNow) {
		t.Fatalf("respondedAt = %v, want %v", responded.RespondedAt, testNow)
	}
	if responded.Response == nil || *responded.Response == "" {
		t.Fatalf("response text not stored")
	}
}

func TestRespondRejectsOtherSupplier(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	quote, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}

	_, err = f.svc.Respond(context.Background(), RespondInput{
		QuoteID:    quote.ID,
		SupplierID: uuid.New(),
		Response:   "No es mi cotización",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRespondRejectsNonOpenQuote(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	quote, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}
	if _, err := f.svc.Respond(context.Background(), RespondInput{
		QuoteID:    quote.ID,
		SupplierID: supplier.ID,
		Response:   "Primera respuesta",
	}); err != nil {
		t.Fatalf("first response: %v", err)
	}

	_, err = f.svc.Respond(context.Background(), RespondInput{
		QuoteID:    quote.ID,
		SupplierID: supplier.ID,
		Response:   "Segunda respuesta",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCloseByBuyerAndIdempotenceGuard(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	input := validCreateInput(supplier.ID)
	quote, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}

	closed, err := f.svc.Close(context.Background(), quote.ID, input.BuyerID)
	if err != nil {
		t.Fatalf("closing: %v", err)
	}
	if closed.Status != enums.QuoteStatusClosed {
		t.Fatalf("status = %s, want closed", closed.Status)
	}

	_, err = f.svc.Close(context.Background(), quote.ID, input.BuyerID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double close, got %v", err)
	}
}

func TestCloseRejectsStranger(t *testing.T) {
	supplier := testSupplier()
	f := newFixture(t, supplier)
	quote, err := f.svc.Create(context.Background(), validCreateInput(supplier.ID))
	if err != nil {
		t.Fatalf("creating quote: %v", err)
	}

	_, err = f.svc.Close(context.Background(), quote.ID, uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
