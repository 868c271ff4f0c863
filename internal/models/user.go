package models

import (
	"strings"
	"time"
)

// MigrationStatus tracks whether a user's credentials still live in this service.
type MigrationStatus string

const (
	MigrationStatusNonMigrated MigrationStatus = "non-migrated"
	MigrationStatusMigrated    MigrationStatus = "migrated"
)

// ProviderName identifies who owns a user's credentials.
type ProviderName string

const (
	ProviderLegacy ProviderName = "legacy"
	ProviderWorkOS ProviderName = "workos"
	ProviderAuth0  ProviderName = "auth0"
)

// Valid reports whether p is one of the known providers.
func (p ProviderName) Valid() bool {
	switch p {
	case ProviderLegacy, ProviderWorkOS, ProviderAuth0:
		return true
	}
	return false
}

// User is the only persisted entity. One users collection (or table) exists per tenant.
type User struct {
	ID              string          `bson:"_id"`
	Email           string          `bson:"email"`
	PasswordHash    string          `bson:"password_hash,omitempty"` // empty unless explicitly requested
	MigrationStatus MigrationStatus `bson:"migration_status"`
	ProviderName    ProviderName    `bson:"provider_name"`
	ProviderUserID  *string         `bson:"provider_user_id"`
	MigrationDate   *time.Time      `bson:"migration_date"`
	Enabled         bool            `bson:"enabled"`
	DeletedAt       *time.Time      `bson:"deleted_at"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
}

// CredentialsManagedByProvider is true once an external identity provider owns
// authentication for the user. Local password changes must then be refused.
func (u *User) CredentialsManagedByProvider() bool {
	return u.MigrationStatus == MigrationStatusMigrated && u.ProviderName != ProviderLegacy
}

// IsMigratedTo reports whether the user is already migrated under providerUserID.
func (u *User) IsMigratedTo(providerUserID string) bool {
	return u.MigrationStatus == MigrationStatusMigrated &&
		u.ProviderUserID != nil && *u.ProviderUserID == providerUserID
}

// NormalizeEmail lower-cases and trims an email so lookups and writes agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
