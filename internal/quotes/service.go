package quotes

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// TxRunner executes a function inside a database transaction. Satisfied by
// pkg/db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends outbox events within a transaction. Satisfied by
// pkg/outbox.Service.
type EventEmitter interface {
	Emit(tx *gorm.DB, input outbox.EmitInput) error
}

// QuotaConsumer charges plan quota inside the caller's transaction. Satisfied
// by plans.Service.
type QuotaConsumer interface {
	ConsumeQuotaTx(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, resource plans.Resource) error
}

// SupplierReader looks up suppliers for quote targeting. Satisfied by the
// suppliers repository.
type SupplierReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// ServiceParams groups dependencies for the quote request service.
type ServiceParams struct {
	Repo      Repository
	DB        TxRunner
	Outbox    EventEmitter
	Quotas    QuotaConsumer
	Suppliers SupplierReader
	Logger    *logger.Logger
	Now       func() time.Time
}

// Service manages quote requests between buyers and suppliers.
type Service struct {
	repo      Repository
	db        TxRunner
	outbox    EventEmitter
	quotas    QuotaConsumer
	suppliers SupplierReader
	logger    *logger.Logger
	now       func() time.Time
}

// NewService builds a quote request service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.Outbox == nil {
		return nil, stdErrors.New("outbox service is required")
	}
	if params.Quotas == nil {
		return nil, stdErrors.New("quota consumer is required")
	}
	if params.Suppliers == nil {
		return nil, stdErrors.New("supplier reader is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		quotas:    params.Quotas,
		suppliers: params.Suppliers,
		logger:    params.Logger,
		now:       now,
	}, nil
}

// QuoteItem is one requested line in a quote.
type QuoteItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit,omitempty"`
}

// CreateInput carries a buyer's quote request.
type CreateInput struct {
	BuyerID    uuid.UUID
	SupplierID uuid.UUID
	Message    string
	Items      []QuoteItem
	Actor      *outbox.ActorRef
}

// Create opens a quote request against the supplier. The supplier's monthly
// quote quota is charged in the same transaction, so a quota rejection leaves
// nothing behind.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.QuoteRequest, error) {
	if input.BuyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "supplier id is required")
	}
	if len(input.Items) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.Description) == "" {
			return nil, errors.New(errors.CodeValidation, "item description is required")
		}
		if item.Quantity <= 0 {
			return nil, errors.New(errors.CodeValidation, "item quantity must be positive")
		}
	}

	supplier, err := s.suppliers.FindByID(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, errors.New(errors.CodeNotFound, "supplier not found")
	}

	items, err := json.Marshal(input.Items)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "encode quote items")
	}

	quote := &models.QuoteRequest{
		ID:         uuid.New(),
		SupplierID: input.SupplierID,
		BuyerID:    input.BuyerID,
		Message:    strings.TrimSpace(input.Message),
		Items:      items,
		Status:     enums.QuoteStatusOpen,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.quotas.ConsumeQuotaTx(ctx, tx, input.SupplierID, plans.ResourceQuotes); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, quote); err != nil {
			return err
		}
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventQuoteRequested,
			AggregateType: enums.OutboxAggregateQuote,
			AggregateID:   quote.ID,
			Actor:         input.Actor,
			Data: map[string]any{
				"supplierId": quote.SupplierID,
				"buyerId":    quote.BuyerID,
				"itemCount":  len(input.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"supplier_id": quote.SupplierID.String(),
		"quote_id":    quote.ID.String(),
	}), "quote request created")
	return quote, nil
}

// Get returns the quote, visible only to its buyer or supplier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, errors.New(errors.CodeNotFound, "quote request not found")
	}
	return quote, nil
}

// RespondInput carries a supplier's answer to an open quote.
type RespondInput struct {
	QuoteID    uuid.UUID
	SupplierID uuid.UUID
	Response   string
}

// Respond records the supplier's answer and moves the quote to responded.
func (s *Service) Respond(ctx context.Context, input RespondInput) (*models.QuoteRequest, error) {
	if strings.TrimSpace(input.Response) == "" {
		return nil, errors.New(errors.CodeValidation, "response is required")
	}

	var quote *models.QuoteRequest
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, input.QuoteID)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.New(errors.CodeNotFound, "quote request not found")
		}
		if found.SupplierID != input.SupplierID {
			return errors.New(errors.CodeForbidden, "quote belongs to another supplier")
		}
		if found.Status != enums.QuoteStatusOpen {
			return errors.New(errors.CodeStateConflict, "only open quotes can be responded to").
				WithDetails(map[string]any{"status": found.Status.String()})
		}

		now := s.now()
		response := strings.TrimSpace(input.Response)
		found.Response = &response
		found.RespondedAt = &now
		found.Status = enums.QuoteStatusResponded
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		quote = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Close ends the quote conversation. Buyers close their own quotes; suppliers
// may close quotes addressed to them.
func (s *Service) Close(ctx context.Context, id, callerID uuid.UUID) (*models.QuoteRequest, error) {
	var quote *models.QuoteRequest
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.New(errors.CodeNotFound, "quote request not found")
		}
		if found.BuyerID != callerID && found.SupplierID != callerID {
			return errors.New(errors.CodeForbidden, "quote belongs to another party")
		}
		if found.Status == enums.QuoteStatusClosed {
			return errors.New(errors.CodeStateConflict, "quote is already closed")
		}

		found.Status = enums.QuoteStatusClosed
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		quote = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// ListForSupplier returns the supplier's inbound quote requests, newest first.
func (s *Service) ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error) {
	return s.repo.List(ctx, ListQuery{SupplierID: &supplierID, Status: status, Limit: limit, Cursor: cursor})
}

// ListForBuyer returns the buyer's outbound quote requests, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error) {
	return s.repo.List(ctx, ListQuery{BuyerID: &buyerID, Status: status, Limit: limit, Cursor: cursor})
}
