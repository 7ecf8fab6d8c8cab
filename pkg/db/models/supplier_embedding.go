package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SupplierEmbedding caches the semantic search vector for a supplier profile.
// TextHash fingerprints the concatenated profile text the vector was computed
// from; when the hash changes the row is stale and the backfill sweep
// recomputes it.
type SupplierEmbedding struct {
	SupplierID uuid.UUID       `gorm:"column:supplier_id;type:uuid;primaryKey"`
	Vector     pq.Float64Array `gorm:"column:vector;type:float8[];not null"`
	TextHash   string          `gorm:"column:text_hash;not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
