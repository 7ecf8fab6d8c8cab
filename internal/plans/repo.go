package plans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
)

// Repository handles plan usage persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCurrentSubscription(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error)
	LockUsage(ctx context.Context, supplierID uuid.UUID, month string) (*models.PlanUsage, error)
	CreateUsage(ctx context.Context, usage *models.PlanUsage) error
	UpdateUsage(ctx context.Context, usage *models.PlanUsage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCurrentSubscription(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// LockUsage claims the usage row for the supplier/month under FOR UPDATE.
func (r *repository) LockUsage(ctx context.Context, supplierID uuid.UUID, month string) (*models.PlanUsage, error) {
	var usage models.PlanUsage
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND month = ?", supplierID, month).
		First(&usage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.PlanUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) UpdateUsage(ctx context.Context, usage *models.PlanUsage) error {
	usage.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(usage).Error
}
