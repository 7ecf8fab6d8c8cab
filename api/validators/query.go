package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseCursor decodes the keyset cursor pair used by list endpoints. Both
// parts must be present or both absent.
func ParseCursor(r *http.Request) (*pagination.Cursor, error) {
	rawCreatedAt := strings.TrimSpace(r.URL.Query().Get("cursor_created_at"))
	rawID := strings.TrimSpace(r.URL.Query().Get("cursor_id"))
	if rawCreatedAt == "" && rawID == "" {
		return nil, nil
	}
	if rawCreatedAt == "" || rawID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor requires both cursor_created_at and cursor_id")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rawCreatedAt)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor_created_at must be RFC3339").WithDetails(map[string]any{"field": "cursor_created_at"})
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor_id must be a uuid").WithDetails(map[string]any{"field": "cursor_id"})
	}
	return &pagination.Cursor{CreatedAt: createdAt, ID: id}, nil
}

// ParseUUIDParam validates a path parameter as a UUID.
func ParseUUIDParam(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
