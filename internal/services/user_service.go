package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/repositories"
	"github.com/BradenHooton/tenantauth/internal/tenant"
	pkgauth "github.com/BradenHooton/tenantauth/pkg/auth"
	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
	"github.com/google/uuid"
)

const notifyTimeout = 30 * time.Second

// RepositoryResolver hands out the user repository bound to the tenant in ctx.
// *tenant.Registry[repositories.UserRepository] satisfies it.
type RepositoryResolver interface {
	ForContext(ctx context.Context) repositories.UserRepository
}

// ResetTokenIssuer mints password reset tokens.
type ResetTokenIssuer interface {
	GeneratePasswordResetToken(user *models.User, tenantID string) (string, error)
}

// UserService is the tenant-aware user surface. Every call works against the
// repository of the tenant resolved for ctx.
type UserService struct {
	repos       RepositoryResolver
	hasher      *pkgauth.PasswordHasher
	resetTokens ResetTokenIssuer
	notifier    PasswordResetNotifier
	resetExpiry time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	pending sync.WaitGroup
}

// NewUserService creates a new UserService. resetTokens and notifier may be
// nil, in which case forgot-password requests are acknowledged and dropped.
func NewUserService(
	repos RepositoryResolver,
	hasher *pkgauth.PasswordHasher,
	resetTokens ResetTokenIssuer,
	notifier PasswordResetNotifier,
	resetExpiry time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *UserService {
	return &UserService{
		repos:       repos,
		hasher:      hasher,
		resetTokens: resetTokens,
		notifier:    notifier,
		resetExpiry: resetExpiry,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func (s *UserService) repo(ctx context.Context) repositories.UserRepository {
	return s.repos.ForContext(ctx)
}

// Create registers a legacy user. The email is stored normalized.
func (s *UserService) Create(ctx context.Context, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.ErrBadRequest
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:              uuid.New().String(),
		Email:           email,
		PasswordHash:    hash,
		MigrationStatus: models.MigrationStatusNonMigrated,
		ProviderName:    models.ProviderLegacy,
		Enabled:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo(ctx).Insert(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user.PasswordHash = ""
	return user, nil
}

// FindByEmail returns the live user for email including the password hash.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.find(ctx, "email", func(repo repositories.UserRepository) (*models.User, error) {
		return repo.FindByEmail(ctx, email, true)
	})
}

// FindByID returns the live user without the password hash.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.find(ctx, "id", func(repo repositories.UserRepository) (*models.User, error) {
		return repo.FindByID(ctx, id, false)
	})
}

// CheckEmailExists looks up a user without loading the password hash.
func (s *UserService) CheckEmailExists(ctx context.Context, email string) (*models.User, error) {
	return s.find(ctx, "email", func(repo repositories.UserRepository) (*models.User, error) {
		return repo.FindByEmail(ctx, email, false)
	})
}

func (s *UserService) find(ctx context.Context, by string, lookup func(repositories.UserRepository) (*models.User, error)) (*models.User, error) {
	user, err := lookup(s.repo(ctx))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get user", slog.String("by", by), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// Count returns the number of live users in the tenant.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo(ctx).Count(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count users", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}
	return n, nil
}

// FindAll lists live users without password hashes.
func (s *UserService) FindAll(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo(ctx).List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}

// ValidatePassword checks plaintext against the user's stored hash.
func (s *UserService) ValidatePassword(user *models.User, plaintext string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return s.hasher.Verify(user.PasswordHash, plaintext)
}

// UpdatePassword re-hashes and stores a new password. No history is kept.
func (s *UserService) UpdatePassword(ctx context.Context, user *models.User, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	if err := s.repo(ctx).UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	user.PasswordHash = hash
	return nil
}

// CheckCredentials resolves email and verifies password, telling the two
// failures apart: models.ErrNotFound or models.ErrUnauthorized.
func (s *UserService) CheckCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !s.ValidatePassword(user, password) {
		return nil, models.ErrUnauthorized
	}
	user.PasswordHash = ""
	return user, nil
}

// MarkMigrated moves a user to MIGRATED under an external provider. Repeating
// the call with the same provider user id changes nothing. A different id
// overwrites the provider fields and stamps a new migration date. There is no
// way back to NON_MIGRATED.
func (s *UserService) MarkMigrated(ctx context.Context, email, providerUserID string, provider models.ProviderName) (*models.User, error) {
	if provider == "" {
		provider = models.ProviderWorkOS
	}
	if !provider.Valid() || providerUserID == "" {
		return nil, models.ErrBadRequest
	}

	user, err := s.CheckEmailExists(ctx, email)
	if err != nil {
		return nil, err
	}

	tenantID := tenant.FromContext(ctx)

	if user.IsMigratedTo(providerUserID) {
		s.auditLogger.LogMigration(ctx, tenantID, user.ID, string(user.ProviderName), true)
		return user, nil
	}

	now := time.Now().UTC()
	user.MigrationStatus = models.MigrationStatusMigrated
	user.ProviderName = provider
	user.ProviderUserID = &providerUserID
	user.MigrationDate = &now

	updated, err := s.repo(ctx).UpdateMigration(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to mark user migrated", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user migrated",
		slog.String("user_id", updated.ID),
		slog.String("provider_name", string(provider)))
	s.auditLogger.LogMigration(ctx, tenantID, updated.ID, string(provider), false)

	return updated, nil
}

// HandleForgotPassword always succeeds. When a live legacy user matches, a
// reset link is sent in the background so the response never depends on
// whether the account exists.
func (s *UserService) HandleForgotPassword(ctx context.Context, email string) error {
	// The hash is needed to bind the reset token to the current password
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.WarnContext(ctx, "forgot password lookup failed", slog.Any("error", err))
		}
		return nil
	}

	tenantID := tenant.FromContext(ctx)
	s.auditLogger.LogAccountAction(ctx, "password_reset_requested", tenantID, user.ID, nil)

	if user.CredentialsManagedByProvider() || !user.Enabled || s.resetTokens == nil || s.notifier == nil {
		return nil
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		token, err := s.resetTokens.GeneratePasswordResetToken(user, tenantID)
		if err != nil {
			s.logger.ErrorContext(bgCtx, "failed to generate reset token", slog.String("user_id", user.ID), slog.Any("error", err))
			return
		}

		expiresAt := time.Now().Add(s.resetExpiry)
		if err := s.notifier.SendPasswordResetEmail(bgCtx, user.Email, tenantID, token, expiresAt); err != nil {
			s.logger.WarnContext(bgCtx, "failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}()

	return nil
}

// Wait blocks until background notifications started by HandleForgotPassword finish.
func (s *UserService) Wait() {
	s.pending.Wait()
}

// UserResponse is the sanitized form of a user returned to clients.
type UserResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	MigrationStatus string     `json:"migration_status"`
	ProviderName    string     `json:"provider_name"`
	ProviderUserID  *string    `json:"provider_user_id"`
	MigrationDate   *time.Time `json:"migration_date"`
	Enabled         bool       `json:"enabled"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

// UserModelToResponse strips everything that must not leave the service.
func UserModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		MigrationStatus: string(user.MigrationStatus),
		ProviderName:    string(user.ProviderName),
		ProviderUserID:  user.ProviderUserID,
		MigrationDate:   user.MigrationDate,
		Enabled:         user.Enabled,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       user.UpdatedAt.Format(time.RFC3339),
	}
}
