package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/pkg/enums"
)

// Payment records a gateway charge against a subscription. Rows are immutable
// once the status is terminal, except for refund linkage.
type Payment struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionID       uuid.UUID            `gorm:"column:subscription_id;type:uuid;not null;index"`
	SupplierID           uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null;index"`
	Amount               decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency             string               `gorm:"column:currency;not null;default:'DOP'"`
	Status               enums.PaymentStatus  `gorm:"column:status;not null;default:'pending'"`
	Gateway              enums.PaymentGateway `gorm:"column:gateway;not null;default:'azul'"`
	GatewayTransactionID *string              `gorm:"column:gateway_transaction_id"`
	OrderNumber          string               `gorm:"column:order_number;not null;uniqueIndex"`
	RefundOfID           *uuid.UUID           `gorm:"column:refund_of_id;type:uuid"`
	PaymentDate          *time.Time           `gorm:"column:payment_date"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
