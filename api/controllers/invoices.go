package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/invoices"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// InvoiceService is the slice of internal/invoices.Service the HTTP layer
// needs.
type InvoiceService interface {
	List(ctx context.Context, params invoices.ListQuery) ([]models.Invoice, *pagination.Cursor, error)
}

type invoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceNumber string          `json:"invoice_number"`
	NCF           string          `json:"ncf"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ITBIS         decimal.Decimal `json:"itbis"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
}

func newInvoiceResponse(invoice *models.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            invoice.ID,
		PaymentID:     invoice.PaymentID,
		InvoiceNumber: invoice.InvoiceNumber,
		NCF:           invoice.NCF,
		Subtotal:      invoice.Subtotal,
		ITBIS:         invoice.ITBIS,
		Total:         invoice.Total,
		Status:        string(invoice.Status),
		IssuedAt:      invoice.IssuedAt,
	}
}

// InvoiceList returns the caller's invoices, newest first.
func InvoiceList(svc InvoiceService, logg *logger.Logger) http.HandlerFunc {
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

		result, next, err := svc.List(r.Context(), invoices.ListQuery{
			SupplierID: &supplierID,
			Limit:      limit,
			Cursor:     cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]invoiceResponse, 0, len(result))
		for i := range result {
			items = append(items, newInvoiceResponse(&result[i]))
		}
		responses.WriteSuccess(w, listResponse[invoiceResponse]{Items: items, Cursor: newCursorResponse(next)})
	}
}
