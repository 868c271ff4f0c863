package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/services"
	pkghttp "github.com/BradenHooton/tenantauth/pkg/http"
)

// UserService defines what the user listing needs
type UserService interface {
	FindAll(ctx context.Context) ([]*models.User, error)
}

// UserHandler serves the tenant-scoped user list
type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.FindAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*services.UserResponse, len(users))
	for i, u := range users {
		resp[i] = services.UserModelToResponse(u)
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
