package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/tenant"
	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
)

// AuthService handles authentication business logic
type AuthService struct {
	users       *UserService
	tm          *auth.TokenManager
	authorizer  AuthorizationClient
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users *UserService,
	tm *auth.TokenManager,
	authorizer AuthorizationClient,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:       users,
		tm:          tm,
		authorizer:  authorizer,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AuthResponse represents the response from register and login
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

// Register creates a legacy user and signs them in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	tenantID := tenant.FromContext(ctx)

	user, err := s.users.Create(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     "register_failed",
				Tenant:        tenantID,
				Email:         email,
				FailureReason: "email_taken",
			})
		}
		return nil, err
	}

	resp, err := s.issue(ctx, user, tenantID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "register",
		Tenant:    tenantID,
		UserID:    user.ID,
		Success:   true,
	})

	return resp, nil
}

// Login verifies credentials. Unknown email, disabled account and wrong
// password all yield models.ErrUnauthorized after the same padded delay.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	start := time.Now()
	tenantID := tenant.FromContext(ctx)

	fail := func(userID, reason string) (*AuthResponse, error) {
		s.logger.InfoContext(ctx, "login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "login_failed",
			Tenant:        tenantID,
			UserID:        userID,
			Email:         email,
			FailureReason: reason,
		})
		s.timingDelay.WaitFrom(ctx, start, false)
		return nil, models.ErrUnauthorized
	}

	if models.NormalizeEmail(email) == "" {
		return fail("", "empty_email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fail("", "invalid_credentials")
		}
		return nil, err
	}

	if !user.Enabled {
		return fail(user.ID, "account_disabled")
	}

	if !s.users.ValidatePassword(user, password) {
		return fail(user.ID, "invalid_credentials")
	}

	user.PasswordHash = ""
	resp, err := s.issue(ctx, user, tenantID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login",
		Tenant:    tenantID,
		UserID:    user.ID,
		Success:   true,
	})

	return resp, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, tenantID string) (*AuthResponse, error) {
	accessToken, err := s.tm.GenerateAccessToken(user, tenantID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken: accessToken,
		User:        UserModelToResponse(user),
	}, nil
}

// ChangePassword replaces the password of an authenticated user. Users whose
// credentials moved to an external provider are refused before the current
// password is checked.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	tenantID := tenant.FromContext(ctx)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return err
	}

	if user.CredentialsManagedByProvider() {
		s.auditLogger.LogPasswordChange(ctx, tenantID, user.ID, "", false)
		return models.ErrPasswordManagedByProvider
	}

	// FindByID never loads the hash; the email lookup does
	withHash, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return err
	}

	if !s.users.ValidatePassword(withHash, currentPassword) {
		s.auditLogger.LogPasswordChange(ctx, tenantID, user.ID, "", false)
		return models.ErrUnauthorized
	}

	if err := s.users.UpdatePassword(ctx, withHash, newPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	s.auditLogger.LogPasswordChange(ctx, tenantID, user.ID, "", true)
	return nil
}

// ResetPassword completes the forgot-password flow using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	tenantID := tenant.FromContext(ctx)

	claims, err := s.tm.ValidateToken(token)
	if err != nil || claims.Type != models.TokenTypePasswordReset || claims.Tenant != tenantID {
		return models.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return err
	}

	if user.CredentialsManagedByProvider() {
		return models.ErrPasswordManagedByProvider
	}

	withHash, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return err
	}

	// A token issued before the last password change is spent
	if !auth.MatchesPassword(claims, withHash.PasswordHash) {
		s.auditLogger.LogAccountAction(ctx, "password_reset_rejected", tenantID, user.ID, nil)
		return models.ErrUnauthorized
	}

	if err := s.users.UpdatePassword(ctx, withHash, newPassword); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction(ctx, "password_reset", tenantID, user.ID, nil)
	return nil
}

// Authorize exchanges an authorization code upstream and re-signs the returned
// claims with the local secret. Any upstream failure is models.ErrUpstream.
func (s *AuthService) Authorize(ctx context.Context, code, codeVerifier string) (string, error) {
	payload, err := s.authorizer.Exchange(ctx, code, codeVerifier)
	if err != nil {
		s.logger.WarnContext(ctx, "authorization exchange failed", slog.Any("error", err))
		return "", models.ErrUpstream
	}

	token, err := s.tm.SignPayload(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to sign authorization payload", slog.Any("error", err))
		return "", models.ErrUpstream
	}

	return token, nil
}

// Me returns the sanitized profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}
	return UserModelToResponse(user), nil
}
