package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanUsage holds per-supplier monthly counters checked against plan limits.
// Month uses the "2006-01" format.
type PlanUsage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID  uuid.UUID `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:idx_plan_usage_supplier_month"`
	Month       string    `gorm:"column:month;not null;uniqueIndex:idx_plan_usage_supplier_month"`
	Products    int       `gorm:"column:products;not null;default:0"`
	Quotes      int       `gorm:"column:quotes;not null;default:0"`
	Specialties int       `gorm:"column:specialties;not null;default:0"`
	Photos      int       `gorm:"column:photos;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
