package pagination

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size applied when a list query omits one.
	DefaultLimit = 20
	// MaxLimit caps the rows any single list query may return.
	MaxLimit = 100
)

// Cursor is a keyset position over (created_at DESC, id DESC). Lists resume
// strictly after the row it names, so concurrent inserts never shift pages.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps a requested limit into [1, MaxLimit], substituting
// DefaultLimit for zero or negative values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer adds one row past the normalized limit. Repositories fetch
// the extra row to learn whether a next page exists without a second count
// query.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}
