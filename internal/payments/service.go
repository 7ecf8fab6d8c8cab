package payments

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/internal/billing"
	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/azul"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// itbisDivisor backs the 18% ITBIS out of a tax-inclusive amount.
var itbisDivisor = decimal.RequireFromString("1.18")

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(tx *gorm.DB, input outbox.EmitInput) error
}

// SubscriptionTransitioner drives the subscription state machine when a
// payment settles. Satisfied by internal/subscriptions.Service.
type SubscriptionTransitioner interface {
	HandlePaymentCompletedTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error)
	HandlePaymentFailedTx(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) (*models.Subscription, error)
	Current(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error)
}

// InvoiceGenerator issues the fiscal invoice for a completed payment.
// Satisfied by internal/invoices.Service.
type InvoiceGenerator interface {
	GenerateForPaymentTx(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*models.Invoice, error)
}

// FormBuilder signs the outbound gateway form. Satisfied by pkg/azul.Client.
type FormBuilder interface {
	BuildPaymentForm(req azul.PaymentRequest) (*azul.PaymentForm, error)
	VerifyCallback(cb azul.Callback) error
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo          Repository
	DB            TxRunner
	Gateway       FormBuilder
	Subscriptions SubscriptionTransitioner
	Invoices      InvoiceGenerator
	Outbox        EventEmitter
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service owns the payment lifecycle: checkout form creation and gateway
// callback processing.
type Service struct {
	repo          Repository
	db            TxRunner
	gateway       FormBuilder
	subscriptions SubscriptionTransitioner
	invoices      InvoiceGenerator
	outbox        EventEmitter
	logger        *logger.Logger
	now           func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.Gateway == nil {
		return nil, stdErrors.New("gateway is required")
	}
	if params.Subscriptions == nil {
		return nil, stdErrors.New("subscriptions service is required")
	}
	if params.Invoices == nil {
		return nil, stdErrors.New("invoices service is required")
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
		repo:          params.Repo,
		db:            params.DB,
		gateway:       params.Gateway,
		subscriptions: params.Subscriptions,
		invoices:      params.Invoices,
		outbox:        params.Outbox,
		logger:        params.Logger,
		now:           now,
	}, nil
}

// CheckoutResult pairs the payment row with the signed gateway form.
type CheckoutResult struct {
	Payment *models.Payment   `json:"payment"`
	Form    *azul.PaymentForm `json:"form"`
}

// Checkout prepares the supplier's next charge: the most recent pending
// payment if one exists (e.g. a proration balance), otherwise a fresh payment
// for the full cycle price.
func (s *Service) Checkout(ctx context.Context, supplierID uuid.UUID) (*CheckoutResult, error) {
	sub, err := s.subscriptions.Current(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindPendingBySubscription(ctx, sub.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading pending payment")
	}
	if payment == nil {
		price, err := plans.Price(sub.PlanTier, sub.BillingCycle)
		if err != nil {
			return nil, err
		}
		payment = &models.Payment{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			SupplierID:     supplierID,
			Amount:         price,
			Currency:       "DOP",
			Status:         enums.PaymentStatusPending,
			Gateway:        enums.PaymentGatewayAzul,
			OrderNumber:    billing.NewOrderNumber(s.now()),
		}
		if err := s.repo.Create(ctx, payment); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating payment")
		}
	}

	subtotal := payment.Amount.Div(itbisDivisor)
	form, err := s.gateway.BuildPaymentForm(azul.PaymentRequest{
		OrderNumber: payment.OrderNumber,
		Amount:      payment.Amount,
		ITBIS:       payment.Amount.Sub(subtotal).Round(2),
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{Payment: payment, Form: form}, nil
}

// CallbackResult reports what a processed gateway callback changed.
type CallbackResult struct {
	Payment      *models.Payment      `json:"payment"`
	Subscription *models.Subscription `json:"subscription"`
	Invoice      *models.Invoice      `json:"invoice,omitempty"`
}

// HandleAzulCallback verifies and applies a gateway callback. Verification
// fails closed; nothing is read from the payload before the hash checks out.
// Approved payments complete, advance the subscription and get invoiced;
// declined payments fail and deactivate the subscription. Terminal payments
// reject reprocessing.
func (s *Service) HandleAzulCallback(ctx context.Context, cb azul.Callback) (*CallbackResult, error) {
	if err := s.gateway.VerifyCallback(cb); err != nil {
		s.logger.Warn(ctx, "azul callback signature rejected")
		return nil, err
	}

	orderNumber := cb.Get("OrderNumber")
	var result *CallbackResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByOrderNumberForUpdate(ctx, orderNumber)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "locking payment")
		}
		if payment == nil {
			return errors.New(errors.CodeNotFound, "no payment for order number").
				WithDetails(map[string]any{"orderNumber": orderNumber})
		}
		if payment.Status.Terminal() {
			return errors.New(errors.CodeStateConflict, "payment already settled").
				WithDetails(map[string]any{"status": payment.Status.String()})
		}

		now := s.now()
		if cb.Approved() {
			payment.Status = enums.PaymentStatusCompleted
			if rrn := cb.Get("RRN"); rrn != "" {
				payment.GatewayTransactionID = &rrn
			}
			payment.PaymentDate = &now
			if err := repo.Update(ctx, payment); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "saving payment")
			}

			sub, err := s.subscriptions.HandlePaymentCompletedTx(ctx, tx, payment.SubscriptionID)
			if err != nil {
				return err
			}
			invoice, err := s.invoices.GenerateForPaymentTx(ctx, tx, payment)
			if err != nil {
				return err
			}
			result = &CallbackResult{Payment: payment, Subscription: sub, Invoice: invoice}
			return s.outbox.Emit(tx, outbox.EmitInput{
				EventType:     enums.OutboxEventPaymentCompleted,
				AggregateType: enums.OutboxAggregatePayment,
				AggregateID:   payment.ID,
				Data: map[string]any{
					"supplierId":  payment.SupplierID,
					"amount":      payment.Amount,
					"orderNumber": payment.OrderNumber,
				},
			})
		}

		payment.Status = enums.PaymentStatusFailed
		payment.PaymentDate = &now
		if err := repo.Update(ctx, payment); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "saving payment")
		}
		sub, err := s.subscriptions.HandlePaymentFailedTx(ctx, tx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		result = &CallbackResult{Payment: payment, Subscription: sub}
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventPaymentFailed,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Data: map[string]any{
				"supplierId":  payment.SupplierID,
				"orderNumber": payment.OrderNumber,
				"isoCode":     cb.Get("IsoCode"),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns payments, optionally scoped to a supplier.
func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Payment, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}
