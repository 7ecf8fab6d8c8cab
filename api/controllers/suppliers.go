package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/api/validators"
	"github.com/construplaza/construplaza-backend/internal/suppliers"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// SupplierService is the slice of internal/suppliers.Service the HTTP layer
// needs.
type SupplierService interface {
	Register(ctx context.Context, input suppliers.RegisterInput) (*suppliers.RegisterResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
	UpdateProfile(ctx context.Context, supplierID uuid.UUID, input suppliers.UpdateProfileInput) (*models.Supplier, error)
	List(ctx context.Context, params suppliers.ListQuery) ([]models.Supplier, *pagination.Cursor, error)
}

type supplierRegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required,min=2"`
	CompanyName string `json:"company_name" validate:"required,min=2"`
	RNC         string `json:"rnc" validate:"required"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type supplierResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	RNC         string          `json:"rnc"`
	RNCVerified bool            `json:"rnc_verified"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Specialties []string        `json:"specialties"`
	Rating      decimal.Decimal `json:"rating"`
	ReviewCount int             `json:"review_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newSupplierResponse(supplier *models.Supplier) supplierResponse {
	specialties := []string(supplier.Specialties)
	if specialties == nil {
		specialties = []string{}
	}
	return supplierResponse{
		ID:          supplier.ID,
		Name:        supplier.Name,
		RNC:         supplier.RNC,
		RNCVerified: supplier.RNCVerified,
		Description: supplier.Description,
		Location:    supplier.Location,
		Phone:       supplier.Phone,
		Specialties: specialties,
		Rating:      supplier.Rating,
		ReviewCount: supplier.ReviewCount,
		CreatedAt:   supplier.CreatedAt,
	}
}

type listResponse[T any] struct {
	Items  []T             `json:"items"`
	Cursor *cursorResponse `json:"cursor,omitempty"`
}

type cursorResponse struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

func newCursorResponse(cursor *pagination.Cursor) *cursorResponse {
	if cursor == nil {
		return nil
	}
	return &cursorResponse{CreatedAt: cursor.CreatedAt, ID: cursor.ID}
}

// SupplierRegister creates a supplier account with RNC validation.
func SupplierRegister(svc SupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body supplierRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), suppliers.RegisterInput{
			Email:       body.Email,
			Password:    body.Password,
			FullName:    body.FullName,
			CompanyName: body.CompanyName,
			RNC:         body.RNC,
			Phone:       body.Phone,
			Location:    body.Location,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"user":         newUserResponse(result.User),
			"supplier":     newSupplierResponse(result.Supplier),
			"rnc_verified": result.RNCVerified,
		})
	}
}

// PublicSupplierList serves the browsable directory with optional filters.
func PublicSupplierList(svc SupplierService, logg *logger.Logger) http.HandlerFunc {
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
		if specialty := r.URL.Query().Get("specialty"); specialty != "" {
			params.Specialty = &specialty
		}
		if location := r.URL.Query().Get("location"); location != "" {
			params.Location = &location
		}
		if verified := r.URL.Query().Get("verified"); verified == "true" {
			t := true
			params.Verified = &t
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

// PublicSupplierDetail serves one supplier profile.
func PublicSupplierDetail(svc SupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "supplierId"), "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSupplierResponse(supplier))
	}
}

// SupplierMe returns the caller's own supplier profile.
func SupplierMe(svc SupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSupplierResponse(supplier))
	}
}

type supplierUpdateRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=2"`
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
	Phone       *string   `json:"phone"`
	Specialties *[]string `json:"specialties"`
}

// SupplierMeUpdate applies profile changes for the caller's supplier.
func SupplierMeUpdate(svc SupplierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body supplierUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.UpdateProfile(r.Context(), supplierID, suppliers.UpdateProfileInput{
			Name:        body.Name,
			Description: body.Description,
			Location:    body.Location,
			Phone:       body.Phone,
			Specialties: body.Specialties,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSupplierResponse(supplier))
	}
}
