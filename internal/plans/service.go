package plans

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
)

// Resource is a quota-tracked plan resource.
type Resource string

const (
	ResourceProducts    Resource = "products"
	ResourceQuotes      Resource = "quotes"
	ResourceSpecialties Resource = "specialties"
	ResourcePhotos      Resource = "photos"
)

// TxRunner executes a function inside a database transaction. Satisfied by
// pkg/db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the plan usage service.
type ServiceParams struct {
	Repo   Repository
	DB     TxRunner
	Logger *logger.Logger
	Now    func() time.Time
}

// Service enforces plan limits against monthly usage counters.
type Service struct {
	repo   Repository
	db     TxRunner
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds a plan usage service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: params.Repo, db: params.DB, logger: params.Logger, now: now}, nil
}

// ConsumeQuota increments the supplier's monthly counter for the resource,
// rejecting with CodePlanLimit when the tier cap would be exceeded. Counters
// are keyed by "YYYY-MM"; the row is locked for the duration of the enclosing
// transaction.
func (s *Service) ConsumeQuota(ctx context.Context, supplierID uuid.UUID, resource Resource) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ConsumeQuotaTx(ctx, tx, supplierID, resource)
	})
}

// ConsumeQuotaTx is ConsumeQuota running inside the caller's transaction.
func (s *Service) ConsumeQuotaTx(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, resource Resource) error {
	repo := s.repo.WithTx(tx)

	sub, err := repo.FindCurrentSubscription(ctx, supplierID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "looking up subscription")
	}
	if sub == nil {
		return errors.New(errors.CodeNotFound, "supplier has no subscription")
	}
	if !sub.Status.Entitled() {
		return errors.New(errors.CodeStateConflict, "subscription is not entitled").
			WithDetails(map[string]any{"status": sub.Status.String()})
	}

	limits, err := PlanLimits(sub.PlanTier)
	if err != nil {
		return err
	}

	month := s.now().Format("2006-01")
	usage, err := repo.LockUsage(ctx, supplierID, month)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "locking plan usage")
	}
	if usage == nil {
		usage = &models.PlanUsage{
			ID:         uuid.New(),
			SupplierID: supplierID,
			Month:      month,
		}
		if err := repo.CreateUsage(ctx, usage); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating plan usage row")
		}
	}

	counter, limit := usageSlot(usage, limits, resource)
	if counter == nil {
		return errors.New(errors.CodeValidation, "unknown plan resource").
			WithDetails(map[string]any{"resource": string(resource)})
	}
	if limit != Unlimited && *counter >= limit {
		return errors.New(errors.CodePlanLimit, "monthly plan limit reached").
			WithDetails(map[string]any{
				"resource": string(resource),
				"limit":    limit,
				"used":     *counter,
				"tier":     sub.PlanTier.String(),
			})
	}

	*counter++
	if err := repo.UpdateUsage(ctx, usage); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving plan usage")
	}
	return nil
}

// CurrentUsage returns the supplier's usage row for the current month, zeroed
// when no activity happened yet.
func (s *Service) CurrentUsage(ctx context.Context, supplierID uuid.UUID) (models.PlanUsage, error) {
	month := s.now().Format("2006-01")
	usage, err := s.repo.LockUsage(ctx, supplierID, month)
	if err != nil {
		return models.PlanUsage{}, errors.Wrap(errors.CodeInternal, err, "loading plan usage")
	}
	if usage == nil {
		return models.PlanUsage{SupplierID: supplierID, Month: month}, nil
	}
	return *usage, nil
}

func usageSlot(usage *models.PlanUsage, limits Limits, resource Resource) (*int, int) {
	switch resource {
	case ResourceProducts:
		return &usage.Products, limits.MaxProducts
	case ResourceQuotes:
		return &usage.Quotes, limits.MaxQuotesPerMonth
	case ResourceSpecialties:
		return &usage.Specialties, limits.MaxSpecialties
	case ResourcePhotos:
		return &usage.Photos, limits.MaxPhotos
	default:
		return nil, 0
	}
}
