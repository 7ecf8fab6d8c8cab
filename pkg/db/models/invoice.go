package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/pkg/enums"
)

// Invoice is the fiscal document derived from a completed payment.
// InvoiceNumber is year-scoped (INV-2026-00001); NCF is series-scoped
// (B0100000001). Voiding an invoice keeps both numbers allocated.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID     uuid.UUID           `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	SupplierID    uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;index"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	NCF           string              `gorm:"column:ncf;not null;uniqueIndex"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ITBIS         decimal.Decimal     `gorm:"column:itbis;type:numeric(12,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null;default:'issued'"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
