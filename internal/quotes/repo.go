package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// Repository handles quote request persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.QuoteRequest) error
	Update(ctx context.Context, quote *models.QuoteRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	List(ctx context.Context, params ListQuery) ([]models.QuoteRequest, *pagination.Cursor, error)
	HasCompletedQuote(ctx context.Context, buyerID, supplierID uuid.UUID) (bool, error)
}

// ListQuery configures quote list queries.
type ListQuery struct {
	SupplierID *uuid.UUID
	BuyerID    *uuid.UUID
	Status     *enums.QuoteStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a quote repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quote *models.QuoteRequest) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *repository) Update(ctx context.Context, quote *models.QuoteRequest) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var quote models.QuoteRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.QuoteRequest, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.QuoteRequest{})
	if params.SupplierID != nil {
		query = query.Where("supplier_id = ?", *params.SupplierID)
	}
	if params.BuyerID != nil {
		query = query.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var requests []models.QuoteRequest
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > limit {
		next := requests[limit]
		requests = requests[:limit]
		return requests, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return requests, nil, nil
}

// HasCompletedQuote reports whether the buyer has a responded or closed quote
// with the supplier. Backs the review eligibility check.
func (r *repository) HasCompletedQuote(ctx context.Context, buyerID, supplierID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuoteRequest{}).
		Where("buyer_id = ? AND supplier_id = ?", buyerID, supplierID).
		Where("status IN ?", []enums.QuoteStatus{enums.QuoteStatusResponded, enums.QuoteStatusClosed}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
