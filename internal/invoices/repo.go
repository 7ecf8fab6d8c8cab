package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// Repository handles invoice and NCF sequence persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Invoice, error)
	MaxInvoiceNumberForYear(ctx context.Context, prefix string) (string, error)
	LockSequence(ctx context.Context, series string) (*models.NCFSequence, error)
	UpdateSequence(ctx context.Context, seq *models.NCFSequence) error
	ListSequences(ctx context.Context) ([]models.NCFSequence, error)
	List(ctx context.Context, params ListQuery) ([]models.Invoice, *pagination.Cursor, error)
}

// ListQuery configures invoice list queries.
type ListQuery struct {
	SupplierID *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// MaxInvoiceNumberForYear returns the highest invoice number carrying the
// year prefix, or empty when the year has no invoices yet.
func (r *repository) MaxInvoiceNumberForYear(ctx context.Context, prefix string) (string, error) {
	var number string
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("COALESCE(MAX(invoice_number), '')").
		Where("invoice_number LIKE ?", prefix+"%").
		Scan(&number).Error
	if err != nil {
		return "", err
	}
	return number, nil
}

// LockSequence claims the series row under FOR UPDATE so allocations never
// hand out the same number twice.
func (r *repository) LockSequence(ctx context.Context, series string) (*models.NCFSequence, error) {
	var seq models.NCFSequence
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("series = ?", series).
		First(&seq).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &seq, nil
}

func (r *repository) UpdateSequence(ctx context.Context, seq *models.NCFSequence) error {
	return r.db.WithContext(ctx).Save(seq).Error
}

func (r *repository) ListSequences(ctx context.Context) ([]models.NCFSequence, error) {
	var seqs []models.NCFSequence
	if err := r.db.WithContext(ctx).
		Order("series ASC").
		Find(&seqs).Error; err != nil {
		return nil, err
	}
	return seqs, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Invoice, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if params.SupplierID != nil {
		query = query.Where("supplier_id = ?", *params.SupplierID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var invoices []models.Invoice
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&invoices).Error; err != nil {
		return nil, nil, err
	}

	if len(invoices) > limit {
		next := invoices[limit]
		invoices = invoices[:limit]
		return invoices, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return invoices, nil, nil
}
