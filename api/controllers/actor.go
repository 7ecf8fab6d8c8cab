package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/api/middleware"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
)

func actorUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	return id, nil
}

func actorSupplierID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.SupplierIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier profile required")
	}
	return id, nil
}

func middlewareAccessID(r *http.Request) string {
	return middleware.AccessIDFromContext(r.Context())
}

// actorRef builds the outbox actor attribution from the request context.
func actorRef(r *http.Request) *outbox.ActorRef {
	userID, err := actorUserID(r)
	if err != nil {
		return nil
	}
	ref := &outbox.ActorRef{
		UserID: userID,
		Role:   middleware.RoleFromContext(r.Context()),
	}
	if supplierID, err := actorSupplierID(r); err == nil {
		ref.SupplierID = &supplierID
	}
	return ref
}
