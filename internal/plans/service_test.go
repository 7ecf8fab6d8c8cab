package plans

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
)

type stubRepo struct {
	sub     *models.Subscription
	usage   *models.PlanUsage
	created *models.PlanUsage
	updated *models.PlanUsage
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) FindCurrentSubscription(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}
func (s *stubRepo) LockUsage(ctx context.Context, supplierID uuid.UUID, month string) (*models.PlanUsage, error) {
	return s.usage, nil
}
func (s *stubRepo) CreateUsage(ctx context.Context, usage *models.PlanUsage) error {
	s.created = usage
	return nil
}
func (s *stubRepo) UpdateUsage(ctx context.Context, usage *models.PlanUsage) error {
	s.updated = usage
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "plans-test"})
}

func newTestService(t *testing.T, repo *stubRepo) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		DB:     stubTxRunner{},
		Logger: testLogger(t),
		Now:    func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func activeSub(tier enums.PlanTier) *models.Subscription {
	return &models.Subscription{
		ID:         uuid.New(),
		SupplierID: uuid.New(),
		PlanTier:   tier,
		Status:     enums.SubscriptionStatusActive,
	}
}

func TestCatalogPrices(t *testing.T) {
	cases := []struct {
		tier  enums.PlanTier
		cycle enums.BillingCycle
		want  string
	}{
		{enums.PlanTierBasic, enums.BillingCycleMonthly, "1000"},
		{enums.PlanTierBasic, enums.BillingCycleAnnual, "9600"},
		{enums.PlanTierProfessional, enums.BillingCycleMonthly, "2500"},
		{enums.PlanTierProfessional, enums.BillingCycleAnnual, "24000"},
		{enums.PlanTierEnterprise, enums.BillingCycleMonthly, "5000"},
		{enums.PlanTierEnterprise, enums.BillingCycleAnnual, "48000"},
	}
	for _, tc := range cases {
		got, err := Price(tc.tier, tc.cycle)
		if err != nil {
			t.Fatalf("Price(%s, %s): %v", tc.tier, tc.cycle, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Price(%s, %s) = %s, want %s", tc.tier, tc.cycle, got, tc.want)
		}
	}
}

func TestLookupUnknownTier(t *testing.T) {
	_, err := Lookup(enums.PlanTier("platinum"))
	if err == nil {
		t.Fatal("expected error for unknown tier")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConsumeQuotaCreatesRowAndIncrements(t *testing.T) {
	repo := &stubRepo{sub: activeSub(enums.PlanTierBasic)}
	svc := newTestService(t, repo)

	if err := svc.ConsumeQuota(context.Background(), uuid.New(), ResourceQuotes); err != nil {
		t.Fatalf("ConsumeQuota: %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected usage row to be created")
	}
	if repo.created.Month != "2026-03" {
		t.Errorf("month = %q, want 2026-03", repo.created.Month)
	}
	if repo.updated == nil || repo.updated.Quotes != 1 {
		t.Fatalf("expected quotes counter to reach 1, got %+v", repo.updated)
	}
}

func TestConsumeQuotaRejectsAtLimit(t *testing.T) {
	// basic allows 10 quote requests per month
	repo := &stubRepo{
		sub:   activeSub(enums.PlanTierBasic),
		usage: &models.PlanUsage{ID: uuid.New(), Month: "2026-03", Quotes: 10},
	}
	svc := newTestService(t, repo)

	err := svc.ConsumeQuota(context.Background(), uuid.New(), ResourceQuotes)
	if err == nil {
		t.Fatal("expected plan limit error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodePlanLimit {
		t.Fatalf("expected plan limit error, got %v", err)
	}
	if repo.updated != nil {
		t.Fatal("counter must not move when the limit is hit")
	}
}

func TestConsumeQuotaUnlimitedTier(t *testing.T) {
	repo := &stubRepo{
		sub:   activeSub(enums.PlanTierEnterprise),
		usage: &models.PlanUsage{ID: uuid.New(), Month: "2026-03", Quotes: 100000},
	}
	svc := newTestService(t, repo)

	if err := svc.ConsumeQuota(context.Background(), uuid.New(), ResourceQuotes); err != nil {
		t.Fatalf("ConsumeQuota on unlimited tier: %v", err)
	}
	if repo.updated == nil || repo.updated.Quotes != 100001 {
		t.Fatalf("expected counter to keep incrementing, got %+v", repo.updated)
	}
}

func TestConsumeQuotaMissingSubscription(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)

	err := svc.ConsumeQuota(context.Background(), uuid.New(), ResourceProducts)
	if err == nil {
		t.Fatal("expected error without a subscription")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConsumeQuotaInactiveSubscription(t *testing.T) {
	sub := activeSub(enums.PlanTierBasic)
	sub.Status = enums.SubscriptionStatusInactive
	repo := &stubRepo{sub: sub}
	svc := newTestService(t, repo)

	err := svc.ConsumeQuota(context.Background(), uuid.New(), ResourceProducts)
	if err == nil {
		t.Fatal("expected error for inactive subscription")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
