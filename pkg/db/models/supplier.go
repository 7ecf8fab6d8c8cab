package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Supplier is a registered construction-industry supplier in the directory.
type Supplier struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name        string          `gorm:"column:name;not null"`
	RNC         string          `gorm:"column:rnc;not null;uniqueIndex"`
	RNCVerified bool            `gorm:"column:rnc_verified;not null;default:false"`
	Description string          `gorm:"column:description"`
	Location    string          `gorm:"column:location"`
	Phone       string          `gorm:"column:phone"`
	Specialties pq.StringArray  `gorm:"column:specialties;type:text[];default:ARRAY[]::text[]"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	ReviewCount int             `gorm:"column:review_count;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
