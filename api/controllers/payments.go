package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/api/responses"
	"github.com/construplaza/construplaza-backend/internal/payments"
	"github.com/construplaza/construplaza-backend/pkg/azul"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
)

// PaymentService is the slice of internal/payments.Service the HTTP layer
// needs.
type PaymentService interface {
	Checkout(ctx context.Context, supplierID uuid.UUID) (*payments.CheckoutResult, error)
	HandleAzulCallback(ctx context.Context, cb azul.Callback) (*payments.CallbackResult, error)
}

// PaymentCheckout builds the signed Azul form for the supplier's next charge.
func PaymentCheckout(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := actorSupplierID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"payment": newPaymentResponse(result.Payment),
			"form":    result.Form,
		})
	}
}

// AzulWebhook applies a gateway callback. Azul posts the callback fields as a
// form body; the signature is verified before anything else is read.
func AzulWebhook(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for name := range r.PostForm {
			params[name] = r.PostForm.Get(name)
		}

		result, err := svc.HandleAzulCallback(r.Context(), azul.Callback{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"payment":      newPaymentResponse(result.Payment),
			"subscription": newSubscriptionResponse(result.Subscription),
		}
		if result.Invoice != nil {
			payload["invoice"] = newInvoiceResponse(result.Invoice)
		}
		responses.WriteSuccess(w, payload)
	}
}
