package controllers

import (
	"context"
	"net/http"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/search"
	"github.com/construplaza/construplaza-backend/pkg/logger"
)

// SearchService is the slice of internal/search.Service the HTTP layer needs.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

type searchResultResponse struct {
	Supplier  supplierResponse `json:"supplier"`
	Score     float64          `json:"score"`
	Relevance string           `json:"relevance"`
}

// PublicSearch ranks directory suppliers against a free-text query.
func PublicSearch(svc SearchService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]searchResultResponse, 0, len(results))
		for i := range results {
			items = append(items, searchResultResponse{
				Supplier:  newSupplierResponse(&results[i].Supplier),
				Score:     results[i].Score,
				Relevance: string(results[i].Relevance),
			})
		}
		responses.WriteSuccess(w, map[string]any{"results": items})
	}
}
