package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/tenantauth/internal/models"
	pkghttp "github.com/BradenHooton/tenantauth/pkg/http"
)

// writeServiceError maps service sentinel errors onto HTTP responses.
// Anything unrecognised is reported as a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrPasswordManagedByProvider):
		pkghttp.WriteError(w, http.StatusConflict, models.ErrPasswordManagedByProvider.Error(),
			"Password is managed by an external identity provider")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Email already registered")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrUpstream):
		pkghttp.WriteBadGateway(w, "Authorization failed")
	default:
		pkghttp.WriteInternalError(w, "An error occurred")
	}
}
