// Package seed provisions tenant storage and inserts bootstrap users.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/tenant"
)

// Provisioner prepares a tenant's storage (indexes, schema).
type Provisioner interface {
	Provision(ctx context.Context, tenantID string) error
}

// UserStore is the slice of the user service seeding needs.
type UserStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, email, password string) (*models.User, error)
	MarkMigrated(ctx context.Context, email, providerUserID string, provider models.ProviderName) (*models.User, error)
}

// Fixture is a development user inserted by the seed command.
type Fixture struct {
	Email          string
	Password       string
	ProviderUserID string // non-empty means already migrated to WorkOS
}

// Fixtures are the users inserted by the seed command.
var Fixtures = []Fixture{
	{Email: "admin@test.com", Password: "admin123"},
	{Email: "user@test.com", Password: "user123"},
	{Email: "migrated@test.com", Password: "migrated123", ProviderUserID: "workos_user_123"},
}

// Tenants returns the default tenant followed by every known tenant.
func Tenants(known []string) []string {
	out := make([]string, 0, len(known)+1)
	out = append(out, "")
	return append(out, known...)
}

// ProvisionTenants prepares storage for each tenant and reports every failure.
func ProvisionTenants(ctx context.Context, p Provisioner, tenants []string, logger *slog.Logger) error {
	var errs []error
	for _, t := range tenants {
		if err := p.Provision(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("provision tenant %s: %w", tenant.Label(t), err))
			continue
		}
		logger.Info("tenant provisioned", slog.String("tenant", tenant.Label(t)))
	}
	return errors.Join(errs...)
}

// DefaultUsers creates the default user in every tenant that has no users.
// Failures are logged and never returned; startup must not depend on them.
func DefaultUsers(ctx context.Context, users UserStore, tenants []string, email, password string, logger *slog.Logger) {
	if email == "" || password == "" {
		logger.Info("no default user configured, skipping seeding")
		return
	}

	for _, t := range tenants {
		tctx := tenant.WithTenant(ctx, t)
		log := logger.With(slog.String("tenant", tenant.Label(t)))

		count, err := users.Count(tctx)
		if err != nil {
			log.Error("failed to count users", slog.Any("error", err))
			continue
		}
		if count > 0 {
			continue
		}

		if _, err := users.Create(tctx, email, password); err != nil {
			log.Error("failed to create default user", slog.Any("error", err))
			continue
		}
		log.Info("default user created")
	}
}

// InsertFixtures inserts Fixtures into tenantID, skipping emails that already
// exist. It returns how many users were created.
func InsertFixtures(ctx context.Context, users UserStore, tenantID string, logger *slog.Logger) (int, error) {
	ctx = tenant.WithTenant(ctx, tenantID)
	created := 0

	for _, f := range Fixtures {
		_, err := users.Create(ctx, f.Email, f.Password)
		switch {
		case errors.Is(err, models.ErrConflict):
			logger.Info("fixture user exists, skipping", slog.String("email", f.Email))
			continue
		case err != nil:
			return created, fmt.Errorf("create %s: %w", f.Email, err)
		}

		if f.ProviderUserID != "" {
			if _, err := users.MarkMigrated(ctx, f.Email, f.ProviderUserID, models.ProviderWorkOS); err != nil {
				return created, fmt.Errorf("migrate %s: %w", f.Email, err)
			}
		}

		created++
		logger.Info("fixture user created",
			slog.String("tenant", tenant.Label(tenantID)),
			slog.String("email", f.Email))
	}
	return created, nil
}
