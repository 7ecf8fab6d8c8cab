package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/pkg/enums"
)

// Subscription persists local billing state per supplier. The most recently
// created row for a supplier is the current one; rows are never hard-deleted.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID         uuid.UUID                `gorm:"column:supplier_id;type:uuid;not null;index"`
	PlanTier           enums.PlanTier           `gorm:"column:plan_tier;not null"`
	BillingCycle       enums.BillingCycle       `gorm:"column:billing_cycle;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;not null;default:'trialing'"`
	CurrentPeriodStart time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time                `gorm:"column:current_period_end;not null"`
	TrialEndsAt        *time.Time               `gorm:"column:trial_ends_at"`
	MonthlyAmount      decimal.Decimal          `gorm:"column:monthly_amount;type:numeric(12,2);not null"`
	CancelledAt        *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
