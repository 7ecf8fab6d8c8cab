package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
)

// Repository handles supplier embedding persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertEmbedding(ctx context.Context, embedding *models.SupplierEmbedding) error
	FindEmbedding(ctx context.Context, supplierID uuid.UUID) (*models.SupplierEmbedding, error)
	ListEmbeddings(ctx context.Context) ([]models.SupplierEmbedding, error)
	ListSuppliersMissingEmbedding(ctx context.Context, limit int) ([]models.Supplier, error)
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error)
	ListActiveProducts(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a search repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertEmbedding(ctx context.Context, embedding *models.SupplierEmbedding) error {
	embedding.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supplier_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vector", "text_hash", "updated_at"}),
		}).
		Create(embedding).Error
}

func (r *repository) FindEmbedding(ctx context.Context, supplierID uuid.UUID) (*models.SupplierEmbedding, error) {
	var embedding models.SupplierEmbedding
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		First(&embedding).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &embedding, nil
}

func (r *repository) ListEmbeddings(ctx context.Context) ([]models.SupplierEmbedding, error) {
	var embeddings []models.SupplierEmbedding
	if err := r.db.WithContext(ctx).Find(&embeddings).Error; err != nil {
		return nil, err
	}
	return embeddings, nil
}

// ListSuppliersMissingEmbedding returns suppliers without a cached vector,
// oldest first, for the backfill sweep.
func (r *repository) ListSuppliersMissingEmbedding(ctx context.Context, limit int) ([]models.Supplier, error) {
	if limit <= 0 {
		limit = 500
	}
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).
		Where("id NOT IN (?)", r.db.Model(&models.SupplierEmbedding{}).Select("supplier_id")).
		Order("created_at ASC").
		Limit(limit).
		Find(&suppliers).Error
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&supplier).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var suppliers []models.Supplier
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) ListActiveProducts(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND active", supplierID).
		Order("created_at ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
