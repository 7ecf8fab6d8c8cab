package reviews

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

// EligibilityChecker reports whether a buyer has a responded or closed quote
// with the supplier. Satisfied by the quotes repository.
type EligibilityChecker interface {
	HasCompletedQuote(ctx context.Context, buyerID, supplierID uuid.UUID) (bool, error)
}

// SupplierReader looks up suppliers for review targeting. Satisfied by the
// suppliers repository.
type SupplierReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	Repo        Repository
	DB          TxRunner
	Outbox      EventEmitter
	Eligibility EligibilityChecker
	Suppliers   SupplierReader
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service records buyer reviews and keeps supplier rating aggregates current.
type Service struct {
	repo        Repository
	db          TxRunner
	outbox      EventEmitter
	eligibility EligibilityChecker
	suppliers   SupplierReader
	logger      *logger.Logger
	now         func() time.Time
}

// NewService builds a review service.
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
	if params.Eligibility == nil {
		return nil, stdErrors.New("eligibility checker is required")
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
		repo:        params.Repo,
		db:          params.DB,
		outbox:      params.Outbox,
		eligibility: params.Eligibility,
		suppliers:   params.Suppliers,
		logger:      params.Logger,
		now:         now,
	}, nil
}

// CreateInput carries a buyer's review of a supplier.
type CreateInput struct {
	BuyerID    uuid.UUID
	SupplierID uuid.UUID
	Rating     int
	Comment    string
	Actor      *outbox.ActorRef
}

// Create records the review and recomputes the supplier's rating aggregate in
// the same transaction. One review per buyer per supplier.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.BuyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "supplier id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, errors.New(errors.CodeValidation, "rating must be between 1 and 5")
	}

	supplier, err := s.suppliers.FindByID(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, errors.New(errors.CodeNotFound, "supplier not found")
	}

	existing, err := s.repo.FindBySupplierAndBuyer(ctx, input.SupplierID, input.BuyerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "buyer already reviewed this supplier")
	}

	// When the eligibility query itself fails we let the review through
	// rather than block the buyer on an internal fault.
	eligible, err := s.eligibility.HasCompletedQuote(ctx, input.BuyerID, input.SupplierID)
	if err != nil {
		s.logger.Warn(s.logger.WithSupplierID(ctx, input.SupplierID.String()),
			"review eligibility check failed, allowing review")
		eligible = true
	}
	if !eligible {
		return nil, errors.New(errors.CodeForbidden, "reviews require a completed quote with the supplier")
	}

	review := &models.Review{
		ID:         uuid.New(),
		SupplierID: input.SupplierID,
		BuyerID:    input.BuyerID,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			return err
		}

		aggregate, err := repo.RatingAggregate(ctx, input.SupplierID)
		if err != nil {
			return err
		}
		if err := repo.UpdateSupplierRating(ctx, input.SupplierID, aggregate.Average.Round(2), aggregate.Count); err != nil {
			return err
		}

		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventReviewCreated,
			AggregateType: enums.OutboxAggregateReview,
			AggregateID:   review.ID,
			Actor:         input.Actor,
			Data: map[string]any{
				"supplierId": review.SupplierID,
				"buyerId":    review.BuyerID,
				"rating":     review.Rating,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListForSupplier returns the supplier's reviews, newest first.
func (s *Service) ListForSupplier(ctx context.Context, supplierID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	return s.repo.ListForSupplier(ctx, supplierID, limit, cursor)
}
