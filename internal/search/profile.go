package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
)

// ProfileText concatenates the searchable text of a supplier profile. The
// embedding is computed from this string; when it changes the cached vector is
// stale.
func ProfileText(supplier models.Supplier, products []models.Product) string {
	parts := make([]string, 0, 4+len(products)*2)
	parts = append(parts, supplier.Name, supplier.Description)
	parts = append(parts, supplier.Specialties...)
	parts = append(parts, supplier.Location)
	for _, p := range products {
		parts = append(parts, p.Name, p.Description)
	}

	clean := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ". ")
}

// TextHash fingerprints profile or query text for cache keys.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
