package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/invoices"
	"github.com/construplaza/construplaza-backend/internal/payments"
	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/internal/suppliers"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// AdminSupplierService is the slice of internal/suppliers.Service the
// back-office handlers need.
type AdminSupplierService interface {
	List(ctx context.Context, params suppliers.ListQuery) ([]models.Supplier, *pagination.Cursor, error)
	SetVerified(ctx context.Context, supplierID uuid.UUID, verified bool) (*models.Supplier, error)
}

// AdminPaymentService lists payments across all suppliers.
type AdminPaymentService interface {
	List(ctx context.Context, params payments.ListQuery) ([]models.Payment, *pagination.Cursor, error)
}

// AdminInvoiceService lists invoices and reports NCF sequence supply.
type AdminInvoiceService interface {
	List(ctx context.Context, params invoices.ListQuery) ([]models.Invoice, *pagination.Cursor, error)
	CheckAvailability(ctx context.Context) ([]invoices.SeriesAvailability, error)
}

func parseSupplierFilter(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("supplier_id")
	if raw == "" {
		return nil, nil
	}
	id, err := validators.ParseUUIDParam(raw, "supplier_id")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// AdminSupplierList returns suppliers for the back office, including
// unverified ones.
func AdminSupplierList(svc AdminSupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		params := suppliers.ListQuery{Limit: limit, Cursor: cursor}
		if raw := r.URL.Query().Get("verified"); raw != "" {
			verified := raw == "true"
			params.Verified = &verified
		}
		if specialty := r.URL.Query().Get("specialty"); specialty != "" {
			params.Specialty = &specialty
		}

		result, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]supplierResponse, 0, len(result))
		for i := range result {
			items = append(items, newSupplierResponse(&result[i]))
		}
		responses.WriteSuccess(w, listResponse[supplierResponse]{Items: items, Cursor: newCursorResponse(next)})
	}
}

type supplierVerifyRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// AdminSupplierSetVerified flips the RNC verification flag after a manual
// DGII check.
func AdminSupplierSetVerified(svc AdminSupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := validators.ParseUUIDParam(chi.URLParam(r, "supplierId"), "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body supplierVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.SetVerified(r.Context(), supplierID, *body.Verified)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSupplierResponse(supplier))
	}
}

// AdminPaymentList returns payment attempts, optionally for one supplier.
func AdminPaymentList(svc AdminPaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		supplierID, err := parseSupplierFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, next, err := svc.List(r.Context(), payments.ListQuery{
			SupplierID: supplierID,
			Limit:      limit,
			Cursor:     cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]paymentResponse, 0, len(result))
		for i := range result {
			items = append(items, newPaymentResponse(&result[i]))
		}
		responses.WriteSuccess(w, listResponse[paymentResponse]{Items: items, Cursor: newCursorResponse(next)})
	}
}

// AdminInvoiceList returns fiscal invoices, optionally for one supplier.
func AdminInvoiceList(svc AdminInvoiceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		supplierID, err := parseSupplierFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, next, err := svc.List(r.Context(), invoices.ListQuery{
			SupplierID: supplierID,
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

// AdminNCFAvailability reports remaining capacity per NCF series.
func AdminNCFAvailability(svc AdminInvoiceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.CheckAvailability(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"series": report})
	}
}

// AdminPlanCatalog returns the subscription plan catalog with limits.
func AdminPlanCatalog(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"plans": plans.All()})
	}
}
