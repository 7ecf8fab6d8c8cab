package subscriptions

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/internal/billing"
	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
)

// TrialLength is how long a new subscription stays in trialing.
const TrialLength = 7 * 24 * time.Hour

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(tx *gorm.DB, input outbox.EmitInput) error
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo   Repository
	DB     TxRunner
	Outbox EventEmitter
	Logger *logger.Logger
	Now    func() time.Time
}

// Service drives the subscription lifecycle. Every mutation locks the
// subscription row so racing webhooks and user actions serialize.
type Service struct {
	repo   Repository
	db     TxRunner
	outbox EventEmitter
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.Outbox == nil {
		return nil, stdErrors.New("outbox is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:   params.Repo,
		db:     params.DB,
		outbox: params.Outbox,
		logger: params.Logger,
		now:    now,
	}, nil
}

// CreateInput starts a supplier on a plan.
type CreateInput struct {
	SupplierID uuid.UUID
	Tier       enums.PlanTier
	Cycle      enums.BillingCycle
	Actor      *outbox.ActorRef
}

// Create opens a trialing subscription: 7 day trial, first paid period of one
// month starting when the trial ends.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	if input.SupplierID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "supplier id is required")
	}
	if !input.Tier.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown plan tier")
	}
	if !input.Cycle.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown billing cycle")
	}

	monthly, err := plans.Price(input.Tier, enums.BillingCycleMonthly)
	if err != nil {
		return nil, err
	}

	now := s.now()
	trialEnd := now.Add(TrialLength)
	sub := &models.Subscription{
		ID:                 uuid.New(),
		SupplierID:         input.SupplierID,
		PlanTier:           input.Tier,
		BillingCycle:       input.Cycle,
		Status:             enums.SubscriptionStatusTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   trialEnd.AddDate(0, 1, 0),
		TrialEndsAt:        &trialEnd,
		MonthlyAmount:      monthly,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, sub); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating subscription")
		}
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventSubscriptionCreated,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         input.Actor,
			Data: map[string]any{
				"supplierId":   sub.SupplierID,
				"tier":         sub.PlanTier,
				"billingCycle": sub.BillingCycle,
				"trialEndsAt":  trialEnd,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Current returns the supplier's current subscription or a NotFound error.
func (s *Service) Current(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindCurrent(ctx, supplierID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "no subscription for supplier")
	}
	return sub, nil
}

// Cancel marks the subscription cancelled. Immediate or not, the period end
// is preserved so the supplier keeps access until it passes, and payment
// history is untouched; the flag rides along on the emitted event.
func (s *Service) Cancel(ctx context.Context, supplierID uuid.UUID, immediate bool, actor *outbox.ActorRef) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentForUpdate(ctx, supplierID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "locking subscription")
		}
		if sub == nil {
			return errors.New(errors.CodeNotFound, "no subscription for supplier")
		}
		if sub.Status == enums.SubscriptionStatusCancelled || sub.Status == enums.SubscriptionStatusInactive {
			return errors.New(errors.CodeStateConflict, "subscription cannot be cancelled").
				WithDetails(map[string]any{"status": sub.Status.String()})
		}

		now := s.now()
		sub.Status = enums.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		if err := s.saveChecked(ctx, repo, sub); err != nil {
			return err
		}
		result = sub
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventSubscriptionCancelled,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         actor,
			Data: map[string]any{
				"supplierId":       sub.SupplierID,
				"currentPeriodEnd": sub.CurrentPeriodEnd,
				"immediate":        immediate,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reactivate restores a cancelled subscription to active. Any other state is
// rejected; inactive subscriptions need a fresh subscription instead.
func (s *Service) Reactivate(ctx context.Context, supplierID uuid.UUID, actor *outbox.ActorRef) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentForUpdate(ctx, supplierID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "locking subscription")
		}
		if sub == nil {
			return errors.New(errors.CodeNotFound, "no subscription for supplier")
		}
		if sub.Status != enums.SubscriptionStatusCancelled {
			return errors.New(errors.CodeStateConflict, "only cancelled subscriptions can be reactivated").
				WithDetails(map[string]any{"status": sub.Status.String()})
		}

		sub.Status = enums.SubscriptionStatusActive
		sub.CancelledAt = nil
		if err := s.saveChecked(ctx, repo, sub); err != nil {
			return err
		}
		result = sub
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventSubscriptionReactivated,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         actor,
			Data:          map[string]any{"supplierId": sub.SupplierID},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangePlanInput switches a subscription's tier or cycle mid-period.
type ChangePlanInput struct {
	SupplierID uuid.UUID
	NewTier    enums.PlanTier
	NewCycle   enums.BillingCycle
	Actor      *outbox.ActorRef
}

// ChangePlanResult carries the applied change plus the proration breakdown and
// the pending payment created for any amount due.
type ChangePlanResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Proration    billing.Proration    `json:"proration"`
	Payment      *models.Payment      `json:"payment,omitempty"`
}

// ChangePlan prorates and applies a plan change immediately. The new period
// starts now and runs the nominal length of the new cycle; the status is left
// alone.
func (s *Service) ChangePlan(ctx context.Context, input ChangePlanInput) (*ChangePlanResult, error) {
	if !input.NewTier.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown plan tier")
	}
	if !input.NewCycle.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown billing cycle")
	}

	var result *ChangePlanResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentForUpdate(ctx, input.SupplierID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "locking subscription")
		}
		if sub == nil {
			return errors.New(errors.CodeNotFound, "no subscription for supplier")
		}

		now := s.now()
		proration, err := billing.CalculateProration(billing.ProrationInput{
			CurrentTier:  sub.PlanTier,
			CurrentCycle: sub.BillingCycle,
			PeriodStart:  sub.CurrentPeriodStart,
			PeriodEnd:    sub.CurrentPeriodEnd,
			NewTier:      input.NewTier,
			NewCycle:     input.NewCycle,
			Now:          now,
		})
		if err != nil {
			return err
		}

		monthly, err := plans.Price(input.NewTier, enums.BillingCycleMonthly)
		if err != nil {
			return err
		}

		sub.PlanTier = input.NewTier
		sub.BillingCycle = input.NewCycle
		sub.MonthlyAmount = monthly
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = now.AddDate(0, 0, int(billing.NominalCycleDays(input.NewCycle)))
		if err := s.saveChecked(ctx, repo, sub); err != nil {
			return err
		}

		var payment *models.Payment
		if proration.AmountToPay.GreaterThan(decimal.Zero) {
			payment = &models.Payment{
				ID:             uuid.New(),
				SubscriptionID: sub.ID,
				SupplierID:     sub.SupplierID,
				Amount:         proration.AmountToPay,
				Currency:       "DOP",
				Status:         enums.PaymentStatusPending,
				Gateway:        enums.PaymentGatewayAzul,
				OrderNumber:    billing.NewOrderNumber(now),
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "creating proration payment")
			}
		}

		result = &ChangePlanResult{Subscription: sub, Proration: proration, Payment: payment}
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventSubscriptionPlanChanged,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         input.Actor,
			Data: map[string]any{
				"supplierId":  sub.SupplierID,
				"tier":        sub.PlanTier,
				"cycle":       sub.BillingCycle,
				"amountToPay": proration.AmountToPay,
				"isUpgrade":   proration.IsUpgrade,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewProration computes the proration for a plan change without applying it.
func (s *Service) PreviewProration(ctx context.Context, supplierID uuid.UUID, newTier enums.PlanTier, newCycle enums.BillingCycle) (billing.Proration, error) {
	sub, err := s.Current(ctx, supplierID)
	if err != nil {
		return billing.Proration{}, err
	}
	return billing.CalculateProration(billing.ProrationInput{
		CurrentTier:  sub.PlanTier,
		CurrentCycle: sub.BillingCycle,
		PeriodStart:  sub.CurrentPeriodStart,
		PeriodEnd:    sub.CurrentPeriodEnd,
		NewTier:      newTier,
		NewCycle:     newCycle,
		Now:          s.now(),
	})
}

// HandlePaymentCompletedTx advances the subscription one cycle inside the
// caller's transaction. The period shifts forward from the old end, not from
// the payment time.
func (s *Service) HandlePaymentCompletedTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)
	sub, err := repo.FindByIDForUpdate(ctx, subscriptionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "subscription not found")
	}

	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = advanceOneCycle(sub.CurrentPeriodEnd, sub.BillingCycle)
	sub.Status = enums.SubscriptionStatusActive
	if err := s.saveChecked(ctx, repo, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandlePaymentFailedTx moves the subscription to inactive. Inactive is
// terminal; the supplier starts over with a new subscription.
func (s *Service) HandlePaymentFailedTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)
	sub, err := repo.FindByIDForUpdate(ctx, subscriptionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "subscription not found")
	}

	sub.Status = enums.SubscriptionStatusInactive
	if err := s.saveChecked(ctx, repo, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// saveChecked persists the subscription after asserting the period invariant.
func (s *Service) saveChecked(ctx context.Context, repo Repository, sub *models.Subscription) error {
	if !sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart) {
		return errors.New(errors.CodeInternal, "subscription period end not after start").
			WithDetails(map[string]any{"subscriptionId": sub.ID})
	}
	if err := repo.Update(ctx, sub); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving subscription")
	}
	return nil
}

func advanceOneCycle(from time.Time, cycle enums.BillingCycle) time.Time {
	if cycle == enums.BillingCycleAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
