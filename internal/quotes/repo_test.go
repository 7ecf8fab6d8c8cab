package quotes

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
)

func setupQuotesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS quote_requests (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  message TEXT,
  items TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  response TEXT,
  responded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedQuote(t *testing.T, db *gorm.DB, buyerID, supplierID uuid.UUID, status enums.QuoteStatus, created time.Time) *models.QuoteRequest {
	t.Helper()

	quote := &models.QuoteRequest{
		ID:         uuid.New(),
		SupplierID: supplierID,
		BuyerID:    buyerID,
		Message:    "Necesito precios para obra en Santiago",
		Items:      json.RawMessage(`[{"description":"Cemento gris","quantity":100,"unit":"fundas"}]`),
		Status:     status,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

func TestRepositoryList_pagination(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)

	buyer := uuid.New()
	supplier := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	older := seedQuote(t, db, buyer, supplier, enums.QuoteStatusOpen, now.Add(-time.Hour))
	newer := seedQuote(t, db, buyer, supplier, enums.QuoteStatusOpen, now)

	first, cursor, err := repo.List(context.Background(), ListQuery{SupplierID: &supplier, Limit: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NotNil(t, cursor)
	assert.Equal(t, newer.ID, first[0].ID)

	second, last, err := repo.List(context.Background(), ListQuery{SupplierID: &supplier, Limit: 1, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
	assert.Nil(t, last)
}

func TestRepositoryList_filters(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)

	buyerA := uuid.New()
	buyerB := uuid.New()
	supplier := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	seedQuote(t, db, buyerA, supplier, enums.QuoteStatusOpen, now.Add(-2*time.Hour))
	responded := seedQuote(t, db, buyerA, supplier, enums.QuoteStatusResponded, now.Add(-time.Hour))
	seedQuote(t, db, buyerB, supplier, enums.QuoteStatusClosed, now)

	status := enums.QuoteStatusResponded
	list, cursor, err := repo.List(context.Background(), ListQuery{BuyerID: &buyerA, Status: &status, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, responded.ID, list[0].ID)
	assert.Nil(t, cursor)
}

func TestRepositoryFindByID_missingReturnsNil(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)

	quote, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestRepositoryHasCompletedQuote(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)

	buyer := uuid.New()
	supplier := uuid.New()
	other := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	seedQuote(t, db, buyer, supplier, enums.QuoteStatusOpen, now.Add(-time.Hour))

	ok, err := repo.HasCompletedQuote(context.Background(), buyer, supplier)
	require.NoError(t, err)
	assert.False(t, ok, "open quotes alone do not qualify")

	seedQuote(t, db, buyer, supplier, enums.QuoteStatusResponded, now)

	ok, err = repo.HasCompletedQuote(context.Background(), buyer, supplier)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasCompletedQuote(context.Background(), buyer, other)
	require.NoError(t, err)
	assert.False(t, ok)
}
