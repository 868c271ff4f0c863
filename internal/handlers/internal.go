package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/tenantauth/internal/models"
	pkghttp "github.com/BradenHooton/tenantauth/pkg/http"
)

// Error codes returned by the password check.
const (
	ErrorCodeUserNotFound       = "USER_NOT_FOUND"
	ErrorCodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// MigrationService is what the internal migration endpoints need.
type MigrationService interface {
	CheckCredentials(ctx context.Context, email, password string) (*models.User, error)
	MarkMigrated(ctx context.Context, email, providerUserID string, provider models.ProviderName) (*models.User, error)
	CheckEmailExists(ctx context.Context, email string) (*models.User, error)
	HandleForgotPassword(ctx context.Context, email string) error
}

// InternalHandler serves the admin-token gated endpoints used by the
// identity provider during migration.
type InternalHandler struct {
	service MigrationService
}

func NewInternalHandler(service MigrationService) *InternalHandler {
	return &InternalHandler{service: service}
}

// PasswordCheckRequest represents the request body for a credential check
type PasswordCheckRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MarkUserMigratedRequest represents the request body for marking a user migrated
type MarkUserMigratedRequest struct {
	Email          string `json:"email" validate:"required,email"`
	ProviderUserID string `json:"provider_user_id" validate:"required"`
	ProviderName   string `json:"provider_name" validate:"omitempty,oneof=legacy workos auth0"`
}

// EmailRequest carries a single email address
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// MigrationUserSummary is the user view returned to the identity provider
type MigrationUserSummary struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	MigrationStatus string     `json:"migration_status"`
	ProviderUserID  *string    `json:"provider_user_id"`
	ProviderName    string     `json:"provider_name"`
	MigrationDate   *time.Time `json:"migration_date"`
}

// PasswordCheckResponse is either {ok:true, user} or {ok:false, error_code}
type PasswordCheckResponse struct {
	OK        bool                  `json:"ok"`
	User      *MigrationUserSummary `json:"user,omitempty"`
	ErrorCode string                `json:"error_code,omitempty"`
}

// OKResponse acknowledges a write
type OKResponse struct {
	OK bool `json:"ok"`
}

// LookupEmailResponse reports whether a legacy account exists
type LookupEmailResponse struct {
	Exists       bool   `json:"exists"`
	LegacyUserID string `json:"legacy_user_id,omitempty"`
}

func toMigrationSummary(u *models.User) *MigrationUserSummary {
	return &MigrationUserSummary{
		ID:              u.ID,
		Email:           u.Email,
		MigrationStatus: string(u.MigrationStatus),
		ProviderUserID:  u.ProviderUserID,
		ProviderName:    string(u.ProviderName),
		MigrationDate:   u.MigrationDate,
	}
}

// PasswordCheck verifies legacy credentials. Unlike the public endpoints it
// tells an unknown email apart from a wrong password.
// @Router /internal/password-check [post]
func (h *InternalHandler) PasswordCheck(w http.ResponseWriter, r *http.Request) {
	var req PasswordCheckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.CheckCredentials(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, PasswordCheckResponse{OK: true, User: toMigrationSummary(user)})
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteJSON(w, http.StatusOK, PasswordCheckResponse{ErrorCode: ErrorCodeUserNotFound})
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteJSON(w, http.StatusOK, PasswordCheckResponse{ErrorCode: ErrorCodeInvalidCredentials})
	default:
		writeServiceError(w, err)
	}
}

// MarkUserMigrated records that a user's credentials now live with a provider.
// @Router /internal/mark-user-migrated [post]
func (h *InternalHandler) MarkUserMigrated(w http.ResponseWriter, r *http.Request) {
	var req MarkUserMigratedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.service.MarkMigrated(r.Context(), req.Email, req.ProviderUserID, models.ProviderName(req.ProviderName))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// LookupEmail reports whether a legacy account exists for an email.
// @Router /internal/lookup-email [post]
func (h *InternalHandler) LookupEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.CheckEmailExists(r.Context(), req.Email)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, LookupEmailResponse{Exists: true, LegacyUserID: user.ID})
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteJSON(w, http.StatusOK, LookupEmailResponse{Exists: false})
	default:
		writeServiceError(w, err)
	}
}

// ForgotPassword always answers 204 whether or not the account exists.
// @Router /internal/forgot-password [post]
func (h *InternalHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_ = h.service.HandleForgotPassword(r.Context(), req.Email)
	w.WriteHeader(http.StatusNoContent)
}
