package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/pkg/enums"
)

// QuoteRequest is a buyer's request for pricing from a supplier.
type QuoteRequest struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID  uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	Message     string            `gorm:"column:message"`
	Items       json.RawMessage   `gorm:"column:items;type:jsonb;not null"`
	Status      enums.QuoteStatus `gorm:"column:status;not null;default:'open'"`
	Response    *string           `gorm:"column:response"`
	RespondedAt *time.Time        `gorm:"column:responded_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
