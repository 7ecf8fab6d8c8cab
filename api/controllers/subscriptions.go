package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/billing"
	"github.com/construplaza/construplaza-backend/internal/subscriptions"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
)

// SubscriptionService is the slice of internal/subscriptions.Service the HTTP
// layer needs.
type SubscriptionService interface {
	Create(ctx context.Context, input subscriptions.CreateInput) (*models.Subscription, error)
	Current(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, supplierID uuid.UUID, immediate bool, actor *outbox.ActorRef) (*models.Subscription, error)
	Reactivate(ctx context.Context, supplierID uuid.UUID, actor *outbox.ActorRef) (*models.Subscription, error)
	ChangePlan(ctx context.Context, input subscriptions.ChangePlanInput) (*subscriptions.ChangePlanResult, error)
	PreviewProration(ctx context.Context, supplierID uuid.UUID, newTier enums.PlanTier, newCycle enums.BillingCycle) (billing.Proration, error)
}

type subscriptionResponse struct {
	ID            uuid.UUID       `json:"id"`
	PlanTier      string          `json:"plan_tier"`
	BillingCycle  string          `json:"billing_cycle"`
	Status        string          `json:"status"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	TrialEndsAt   *time.Time      `json:"trial_ends_at,omitempty"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

func newSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:            sub.ID,
		PlanTier:      string(sub.PlanTier),
		BillingCycle:  string(sub.BillingCycle),
		Status:        string(sub.Status),
		MonthlyAmount: sub.MonthlyAmount,
		TrialEndsAt:   sub.TrialEndsAt,
		PeriodStart:   sub.CurrentPeriodStart,
		PeriodEnd:     sub.CurrentPeriodEnd,
		CancelledAt:   sub.CancelledAt,
	}
}

type prorationResponse struct {
	DaysRemaining   int64           `json:"days_remaining"`
	CreditAmount    decimal.Decimal `json:"credit_amount"`
	CostOfRemainder decimal.Decimal `json:"cost_of_remainder"`
	AmountToPay     decimal.Decimal `json:"amount_to_pay"`
	IsUpgrade       bool            `json:"is_upgrade"`
}

func newProrationResponse(p billing.Proration) prorationResponse {
	return prorationResponse{
		DaysRemaining:   p.DaysRemaining,
		CreditAmount:    p.CreditAmount,
		CostOfRemainder: p.CostOfRemainder,
		AmountToPay:     p.AmountToPay,
		IsUpgrade:       p.IsUpgrade,
	}
}

type planSelectionRequest struct {
	Tier  string `json:"tier" validate:"required,oneof=basic professional enterprise"`
	Cycle string `json:"cycle" validate:"required,oneof=monthly annual"`
}

func (p planSelectionRequest) parse() (enums.PlanTier, enums.BillingCycle, error) {
	tier, err := enums.ParsePlanTier(p.Tier)
	if err != nil {
		return "", "", errors.Wrap(errors.CodeValidation, err, "invalid plan tier")
	}
	cycle, err := enums.ParseBillingCycle(p.Cycle)
	if err != nil {
		return "", "", errors.Wrap(errors.CodeValidation, err, "invalid billing cycle")
	}
	return tier, cycle, nil
}

// SubscriptionCreate opens a trialing subscription for the caller's supplier.
func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body planSelectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier, cycle, err := body.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Create(r.Context(), subscriptions.CreateInput{
			SupplierID: supplierID,
			Tier:       tier,
			Cycle:      cycle,
			Actor:      actorRef(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSubscriptionResponse(sub))
	}
}

// SubscriptionCurrent returns the caller's latest subscription.
func SubscriptionCurrent(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Current(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

type subscriptionCancelRequest struct {
	Immediate bool `json:"immediate"`
}

// SubscriptionCancel cancels the caller's subscription. The body is optional;
// omitting it cancels at period end.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body subscriptionCancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		sub, err := svc.Cancel(r.Context(), supplierID, body.Immediate, actorRef(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// SubscriptionReactivate reverses a cancellation before the period ends.
func SubscriptionReactivate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Reactivate(r.Context(), supplierID, actorRef(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

type paymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:          payment.ID,
		OrderNumber: payment.OrderNumber,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Status:      string(payment.Status),
	}
}

// SubscriptionChangePlan prorates and applies a plan change immediately.
func SubscriptionChangePlan(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body planSelectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier, cycle, err := body.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ChangePlan(r.Context(), subscriptions.ChangePlanInput{
			SupplierID: supplierID,
			NewTier:    tier,
			NewCycle:   cycle,
			Actor:      actorRef(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"subscription": newSubscriptionResponse(result.Subscription),
			"proration":    newProrationResponse(result.Proration),
		}
		if result.Payment != nil {
			payload["payment"] = newPaymentResponse(result.Payment)
		}
		responses.WriteSuccess(w, payload)
	}
}

// SubscriptionPreviewProration quotes a plan change without applying it.
func SubscriptionPreviewProration(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body planSelectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier, cycle, err := body.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proration, err := svc.PreviewProration(r.Context(), supplierID, tier, cycle)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProrationResponse(proration))
	}
}
