package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/quotes"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// QuoteService is the slice of internal/quotes.Service the HTTP layer needs.
type QuoteService interface {
	Create(ctx context.Context, input quotes.CreateInput) (*models.QuoteRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	Respond(ctx context.Context, input quotes.RespondInput) (*models.QuoteRequest, error)
	Close(ctx context.Context, id, callerID uuid.UUID) (*models.QuoteRequest, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, status *enums.QuoteStatus, limit int, cursor *pagination.Cursor) ([]models.QuoteRequest, *pagination.Cursor, error)
}

type quoteItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
	Unit        string `json:"unit"`
}

type quoteCreateRequest struct {
	SupplierID string             `json:"supplier_id" validate:"required,uuid"`
	Message    string             `json:"message"`
	Items      []quoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

type quoteResponse struct {
	ID          uuid.UUID       `json:"id"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	Message     string          `json:"message,omitempty"`
	Items       json.RawMessage `json:"items"`
	Status      string          `json:"status"`
	Response    *string         `json:"response,omitempty"`
	RespondedAt *time.Time      `json:"responded_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newQuoteResponse(quote *models.QuoteRequest) quoteResponse {
	return quoteResponse{
		ID:          quote.ID,
		SupplierID:  quote.SupplierID,
		BuyerID:     quote.BuyerID,
		Message:     quote.Message,
		Items:       quote.Items,
		Status:      string(quote.Status),
		Response:    quote.Response,
		RespondedAt: quote.RespondedAt,
		CreatedAt:   quote.CreatedAt,
	}
}

// QuoteCreate opens a quote request from the caller against a supplier.
func QuoteCreate(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseUUIDParam(body.SupplierID, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]quotes.QuoteItem, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, quotes.QuoteItem{
				Description: item.Description,
				Quantity:    item.Quantity,
				Unit:        item.Unit,
			})
		}

		quote, err := svc.Create(r.Context(), quotes.CreateInput{
			BuyerID:    buyerID,
			SupplierID: supplierID,
			Message:    body.Message,
			Items:      items,
			Actor:      actorRef(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newQuoteResponse(quote))
	}
}

// QuoteDetail returns one quote, visible only to its buyer or supplier.
func QuoteDetail(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "quoteId"), "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

type quoteRespondRequest struct {
	Response string `json:"response" validate:"required,min=1"`
}

// QuoteRespond records the supplier's answer to an open quote.
func QuoteRespond(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "quoteId"), "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteRespondRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Respond(r.Context(), quotes.RespondInput{
			QuoteID:    id,
			SupplierID: supplierID,
			Response:   body.Response,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

// QuoteClose ends the quote conversation.
func QuoteClose(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// Suppliers close under their supplier identity.
		if supplierID, err := actorSupplierID(r); err == nil {
			callerID = supplierID
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "quoteId"), "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Close(r.Context(), id, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

func parseQuoteStatusFilter(r *http.Request) (*enums.QuoteStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseQuoteStatus(raw)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid quote status")
	}
	return &status, nil
}

func writeQuoteList(w http.ResponseWriter, result []models.QuoteRequest, next *pagination.Cursor) {
	items := make([]quoteResponse, 0, len(result))
	for i := range result {
		items = append(items, newQuoteResponse(&result[i]))
	}
	responses.WriteSuccess(w, listResponse[quoteResponse]{Items: items, Cursor: newCursorResponse(next)})
}

// QuoteListForBuyer returns the caller's outbound quote requests.
func QuoteListForBuyer(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.ParseCursor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseQuoteStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, next, err := svc.ListForBuyer(r.Context(), buyerID, status, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeQuoteList(w, result, next)
	}
}

// QuoteListForSupplier returns the caller's inbound quote requests.
func QuoteListForSupplier(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.ParseCursor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseQuoteStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, next, err := svc.ListForSupplier(r.Context(), supplierID, status, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeQuoteList(w, result, next)
	}
}
