package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// Repository handles review persistence and rating aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	FindBySupplierAndBuyer(ctx context.Context, supplierID, buyerID uuid.UUID) (*models.Review, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error)
	RatingAggregate(ctx context.Context, supplierID uuid.UUID) (RatingAggregate, error)
	UpdateSupplierRating(ctx context.Context, supplierID uuid.UUID, rating decimal.Decimal, count int) error
}

// RatingAggregate is the recomputed review summary for a supplier.
type RatingAggregate struct {
	Average decimal.Decimal
	Count   int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a review repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindBySupplierAndBuyer(ctx context.Context, supplierID, buyerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND buyer_id = ?", supplierID, buyerID).
		First(&review).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListForSupplier(ctx context.Context, supplierID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	limit = pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("supplier_id = ?", supplierID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&reviews).Error; err != nil {
		return nil, nil, err
	}

	if len(reviews) > limit {
		next := reviews[limit]
		reviews = reviews[:limit]
		return reviews, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return reviews, nil, nil
}

func (r *repository) RatingAggregate(ctx context.Context, supplierID uuid.UUID) (RatingAggregate, error) {
	var row struct {
		Average decimal.Decimal
		Count   int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("supplier_id = ?", supplierID).
		Scan(&row).Error
	if err != nil {
		return RatingAggregate{}, err
	}
	return RatingAggregate{Average: row.Average, Count: row.Count}, nil
}

// UpdateSupplierRating writes the recomputed aggregate onto the supplier row.
func (r *repository) UpdateSupplierRating(ctx context.Context, supplierID uuid.UUID, rating decimal.Decimal, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", supplierID).
		Updates(map[string]any{"rating": rating, "review_count": count}).Error
}
