package search

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/redis"
)

// queryCacheTTL bounds how long a query embedding stays cached.
const queryCacheTTL = 24 * time.Hour

// Embedder turns text into a vector. Satisfied by pkg/embeddings.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// QueryCache caches query embeddings. Satisfied by pkg/redis.Client.
type QueryCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	QueryEmbeddingKey(textHash string) string
}

// ServiceParams groups dependencies for the search service.
type ServiceParams struct {
	Repo     Repository
	Embedder Embedder
	Cache    QueryCache
	Logger   *logger.Logger
}

// Service ranks suppliers against free-text queries by embedding similarity.
type Service struct {
	repo     Repository
	embedder Embedder
	cache    QueryCache
	logger   *logger.Logger
}

// NewService builds a search service. Cache is optional; without it every
// query hits the inference endpoint.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.Embedder == nil {
		return nil, stdErrors.New("embedder is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &Service{
		repo:     params.Repo,
		embedder: params.Embedder,
		cache:    params.Cache,
		logger:   params.Logger,
	}, nil
}

// Result is one ranked search hit.
type Result struct {
	Supplier  models.Supplier `json:"supplier"`
	Score     float64         `json:"score"`
	Relevance Relevance       `json:"relevance"`
}

// Search embeds the query and ranks suppliers with cached vectors by cosine
// similarity, highest first. Suppliers without an embedding are invisible
// until the backfill sweep reaches them.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.CodeValidation, "query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	queryVector, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	embeddings, err := s.repo.ListEmbeddings(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing supplier embeddings")
	}

	type scored struct {
		supplierID uuid.UUID
		score      float64
	}
	ranked := make([]scored, 0, len(embeddings))
	for _, emb := range embeddings {
		ranked = append(ranked, scored{
			supplierID: emb.SupplierID,
			score:      CosineSimilarity(queryVector, emb.Vector),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, hit := range ranked {
		ids = append(ids, hit.supplierID)
	}
	suppliers, err := s.repo.ListSuppliersByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading suppliers")
	}
	byID := make(map[uuid.UUID]models.Supplier, len(suppliers))
	for _, sup := range suppliers {
		byID[sup.ID] = sup
	}

	results := make([]Result, 0, len(ranked))
	for _, hit := range ranked {
		supplier, ok := byID[hit.supplierID]
		if !ok {
			continue
		}
		results = append(results, Result{
			Supplier:  supplier,
			Score:     hit.score,
			Relevance: BucketRelevance(hit.score),
		})
	}
	return results, nil
}

// RefreshSupplierEmbedding recomputes the supplier's vector when its profile
// text changed. A matching hash is a no-op.
func (s *Service) RefreshSupplierEmbedding(ctx context.Context, supplierID uuid.UUID) error {
	supplier, err := s.repo.FindSupplier(ctx, supplierID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return errors.New(errors.CodeNotFound, "supplier not found")
	}

	products, err := s.repo.ListActiveProducts(ctx, supplierID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "loading products")
	}

	text := ProfileText(*supplier, products)
	hash := TextHash(text)

	existing, err := s.repo.FindEmbedding(ctx, supplierID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "loading embedding")
	}
	if existing != nil && existing.TextHash == hash {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	return s.repo.UpsertEmbedding(ctx, &models.SupplierEmbedding{
		SupplierID: supplierID,
		Vector:     vector,
		TextHash:   hash,
	})
}

// BackfillMissing embeds every supplier without a cached vector. Individual
// failures are aggregated so one bad profile doesn't stall the sweep.
func (s *Service) BackfillMissing(ctx context.Context, limit int) (int, error) {
	suppliers, err := s.repo.ListSuppliersMissingEmbedding(ctx, limit)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "listing suppliers without embeddings")
	}

	var done int
	var errs error
	for _, supplier := range suppliers {
		if err := s.RefreshSupplierEmbedding(ctx, supplier.ID); err != nil {
			s.logger.Error(
				s.logger.WithSupplierID(ctx, supplier.ID.String()),
				"backfilling supplier embedding", err,
			)
			errs = multierr.Append(errs, err)
			continue
		}
		done++
	}
	return done, errs
}

// queryEmbedding returns the cached query vector or embeds and caches it.
func (s *Service) queryEmbedding(ctx context.Context, query string) ([]float64, error) {
	hash := TextHash(strings.ToLower(query))

	if s.cache != nil {
		key := s.cache.QueryEmbeddingKey(hash)
		raw, err := s.cache.Get(ctx, key)
		if err == nil {
			var vector []float64
			if err := json.Unmarshal([]byte(raw), &vector); err == nil {
				return vector, nil
			}
		} else if !redis.IsNil(err) {
			s.logger.Warn(ctx, "query embedding cache read failed")
		}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		encoded, err := json.Marshal(vector)
		if err == nil {
			if err := s.cache.Set(ctx, s.cache.QueryEmbeddingKey(hash), string(encoded), queryCacheTTL); err != nil {
				s.logger.Warn(ctx, "query embedding cache write failed")
			}
		}
	}
	return vector, nil
}
