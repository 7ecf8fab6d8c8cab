package subscriptions

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
	"github.com/construplaza/construplaza-backend/pkg/outbox"
)

type stubRepo struct {
	sub      *models.Subscription
	created  *models.Subscription
	updated  *models.Subscription
	payments []*models.Payment
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	s.created = subscription
	return nil
}
func (s *stubRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	s.updated = subscription
	return nil
}
func (s *stubRepo) FindCurrent(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}
func (s *stubRepo) FindCurrentForUpdate(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}
func (s *stubRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}
func (s *stubRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.payments = append(s.payments, payment)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type captureEmitter struct {
	events []outbox.EmitInput
}

func (c *captureEmitter) Emit(tx *gorm.DB, input outbox.EmitInput) error {
	c.events = append(c.events, input)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *stubRepo, emitter *captureEmitter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		DB:     stubTxRunner{},
		Outbox: emitter,
		Logger: logger.New(logger.Options{ServiceName: "subscriptions-test"}),
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func existingSub(status enums.SubscriptionStatus) *models.Subscription {
	return &models.Subscription{
		ID:                 uuid.New(),
		SupplierID:         uuid.New(),
		PlanTier:           enums.PlanTierBasic,
		BillingCycle:       enums.BillingCycleMonthly,
		Status:             status,
		CurrentPeriodStart: testNow.AddDate(0, 0, -15),
		CurrentPeriodEnd:   testNow.AddDate(0, 0, 15),
		MonthlyAmount:      decimal.NewFromInt(1000),
	}
}

func TestCreateStartsTrial(t *testing.T) {
	repo := &stubRepo{}
	emitter := &captureEmitter{}
	svc := newTestService(t, repo, emitter)

	sub, err := svc.Create(context.Background(), CreateInput{
		SupplierID: uuid.New(),
		Tier:       enums.PlanTierProfessional,
		Cycle:      enums.BillingCycleMonthly,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if sub.Status != enums.SubscriptionStatusTrialing {
		t.Errorf("status = %s, want trialing", sub.Status)
	}
	wantTrialEnd := testNow.Add(7 * 24 * time.Hour)
	if sub.TrialEndsAt == nil || !sub.TrialEndsAt.Equal(wantTrialEnd) {
		t.Errorf("trial end = %v, want %v", sub.TrialEndsAt, wantTrialEnd)
	}
	if !sub.CurrentPeriodEnd.Equal(wantTrialEnd.AddDate(0, 1, 0)) {
		t.Errorf("period end = %v, want trial end + 1 month", sub.CurrentPeriodEnd)
	}
	if !sub.MonthlyAmount.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("monthly amount = %s, want 2500", sub.MonthlyAmount)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.OutboxEventSubscriptionCreated {
		t.Fatalf("expected subscription.created event, got %+v", emitter.events)
	}
}

func TestCancelPreservesPeriodEnd(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	periodEnd := sub.CurrentPeriodEnd
	repo := &stubRepo{sub: sub}
	emitter := &captureEmitter{}
	svc := newTestService(t, repo, emitter)

	got, err := svc.Cancel(context.Background(), sub.SupplierID, false, nil)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != enums.SubscriptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("period end changed on cancel: %v", got.CurrentPeriodEnd)
	}
	if got.CancelledAt == nil {
		t.Error("expected cancelled at to be set")
	}
}

func TestCancelImmediateKeepsEntitlement(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	periodEnd := sub.CurrentPeriodEnd
	emitter := &captureEmitter{}
	svc := newTestService(t, &stubRepo{sub: sub}, emitter)

	got, err := svc.Cancel(context.Background(), sub.SupplierID, true, nil)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != enums.SubscriptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("immediate cancel must not shorten the period: %v", got.CurrentPeriodEnd)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	data, ok := emitter.events[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("event data = %T, want map[string]any", emitter.events[0].Data)
	}
	if immediate, ok := data["immediate"].(bool); !ok || !immediate {
		t.Errorf("event immediate = %v, want true", data["immediate"])
	}
}

func TestCancelMissingSubscription(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &captureEmitter{})
	_, err := svc.Cancel(context.Background(), uuid.New(), false, nil)
	if err == nil {
		t.Fatal("expected error without subscription")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReactivateOnlyFromCancelled(t *testing.T) {
	cases := []struct {
		status enums.SubscriptionStatus
		wantOK bool
	}{
		{enums.SubscriptionStatusCancelled, true},
		{enums.SubscriptionStatusActive, false},
		{enums.SubscriptionStatusTrialing, false},
		{enums.SubscriptionStatusInactive, false},
	}
	for _, tc := range cases {
		sub := existingSub(tc.status)
		cancelledAt := testNow.AddDate(0, 0, -1)
		sub.CancelledAt = &cancelledAt
		svc := newTestService(t, &stubRepo{sub: sub}, &captureEmitter{})

		got, err := svc.Reactivate(context.Background(), sub.SupplierID, nil)
		if tc.wantOK {
			if err != nil {
				t.Fatalf("Reactivate from %s: %v", tc.status, err)
			}
			if got.Status != enums.SubscriptionStatusActive {
				t.Errorf("status = %s, want active", got.Status)
			}
			if got.CancelledAt != nil {
				t.Error("expected cancelled at to be cleared")
			}
			continue
		}
		if err == nil {
			t.Fatalf("expected Reactivate from %s to fail", tc.status)
		}
		if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict from %s, got %v", tc.status, err)
		}
	}
}

func TestChangePlanAppliesImmediately(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	repo := &stubRepo{sub: sub}
	emitter := &captureEmitter{}
	svc := newTestService(t, repo, emitter)

	got, err := svc.ChangePlan(context.Background(), ChangePlanInput{
		SupplierID: sub.SupplierID,
		NewTier:    enums.PlanTierProfessional,
		NewCycle:   enums.BillingCycleMonthly,
	})
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}

	if got.Subscription.PlanTier != enums.PlanTierProfessional {
		t.Errorf("tier = %s, want professional", got.Subscription.PlanTier)
	}
	if !got.Subscription.CurrentPeriodStart.Equal(testNow) {
		t.Errorf("period start = %v, want now", got.Subscription.CurrentPeriodStart)
	}
	if !got.Subscription.CurrentPeriodEnd.Equal(testNow.AddDate(0, 0, 30)) {
		t.Errorf("period end = %v, want now + 30d", got.Subscription.CurrentPeriodEnd)
	}
	if got.Subscription.Status != enums.SubscriptionStatusActive {
		t.Errorf("status changed: %s", got.Subscription.Status)
	}
	// 15 of 30 days remaining: 2500/30*15 - 1000/30*15 = 750
	if !got.Proration.AmountToPay.Equal(decimal.RequireFromString("750.00")) {
		t.Errorf("amount to pay = %s, want 750.00", got.Proration.AmountToPay)
	}
	if got.Payment == nil {
		t.Fatal("expected a pending payment for the prorated amount")
	}
	if got.Payment.Status != enums.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", got.Payment.Status)
	}
	if !got.Payment.Amount.Equal(got.Proration.AmountToPay) {
		t.Errorf("payment amount = %s, want %s", got.Payment.Amount, got.Proration.AmountToPay)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.OutboxEventSubscriptionPlanChanged {
		t.Fatalf("expected plan_changed event, got %+v", emitter.events)
	}
}

func TestChangePlanDowngradeSkipsPayment(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	sub.PlanTier = enums.PlanTierEnterprise
	repo := &stubRepo{sub: sub}
	svc := newTestService(t, repo, &captureEmitter{})

	got, err := svc.ChangePlan(context.Background(), ChangePlanInput{
		SupplierID: sub.SupplierID,
		NewTier:    enums.PlanTierBasic,
		NewCycle:   enums.BillingCycleMonthly,
	})
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	if got.Payment != nil {
		t.Fatalf("no payment expected when nothing is due, got %+v", got.Payment)
	}
	if len(repo.payments) != 0 {
		t.Fatal("no payment row should be created on a downgrade")
	}
}

func TestChangePlanSamePlanRejected(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	svc := newTestService(t, &stubRepo{sub: sub}, &captureEmitter{})

	_, err := svc.ChangePlan(context.Background(), ChangePlanInput{
		SupplierID: sub.SupplierID,
		NewTier:    sub.PlanTier,
		NewCycle:   sub.BillingCycle,
	})
	if err == nil {
		t.Fatal("expected error for identical plan change")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestHandlePaymentCompletedAdvancesPeriod(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusTrialing)
	oldEnd := sub.CurrentPeriodEnd
	svc := newTestService(t, &stubRepo{sub: sub}, &captureEmitter{})

	got, err := svc.HandlePaymentCompletedTx(context.Background(), nil, sub.ID)
	if err != nil {
		t.Fatalf("HandlePaymentCompletedTx: %v", err)
	}
	if !got.CurrentPeriodStart.Equal(oldEnd) {
		t.Errorf("period start = %v, want old period end %v", got.CurrentPeriodStart, oldEnd)
	}
	if !got.CurrentPeriodEnd.Equal(oldEnd.AddDate(0, 1, 0)) {
		t.Errorf("period end = %v, want old end + 1 month", got.CurrentPeriodEnd)
	}
	if got.Status != enums.SubscriptionStatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
}

func TestHandlePaymentFailedGoesInactive(t *testing.T) {
	sub := existingSub(enums.SubscriptionStatusActive)
	repo := &stubRepo{sub: sub}
	svc := newTestService(t, repo, &captureEmitter{})

	got, err := svc.HandlePaymentFailedTx(context.Background(), nil, sub.ID)
	if err != nil {
		t.Fatalf("HandlePaymentFailedTx: %v", err)
	}
	if got.Status != enums.SubscriptionStatusInactive {
		t.Errorf("status = %s, want inactive", got.Status)
	}

	// inactive is terminal
	_, err = svc.Reactivate(context.Background(), sub.SupplierID, nil)
	if err == nil {
		t.Fatal("expected reactivate after failure to be rejected")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
