package repositories

import (
	"context"

	"github.com/BradenHooton/tenantauth/internal/models"
)

// UserRepository is the storage surface for users inside one tenant partition.
// Every read excludes soft-deleted users. Lookups that find nothing return
// models.ErrNotFound.
type UserRepository interface {
	// Insert stores a new user. A taken email yields models.ErrConflict.
	Insert(ctx context.Context, user *models.User) error
	// FindByEmail matches the lower-cased email. The password hash is only
	// populated when withHash is set.
	FindByEmail(ctx context.Context, email string, withHash bool) (*models.User, error)
	FindByID(ctx context.Context, id string, withHash bool) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	// List returns users newest first, never with password hashes.
	List(ctx context.Context) ([]*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateMigration persists the migration fields of user and returns the stored row.
	UpdateMigration(ctx context.Context, user *models.User) (*models.User, error)
}
