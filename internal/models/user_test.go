package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestUser_CredentialsManagedByProvider(t *testing.T) {
	tests := []struct {
		name   string
		status MigrationStatus
		prov   ProviderName
		want   bool
	}{
		{"legacy non-migrated", MigrationStatusNonMigrated, ProviderLegacy, false},
		{"migrated to workos", MigrationStatusMigrated, ProviderWorkOS, true},
		{"migrated to auth0", MigrationStatusMigrated, ProviderAuth0, true},
		{"migrated but legacy provider", MigrationStatusMigrated, ProviderLegacy, false},
		{"provider set but not migrated", MigrationStatusNonMigrated, ProviderWorkOS, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{MigrationStatus: tt.status, ProviderName: tt.prov}
			assert.Equal(t, tt.want, u.CredentialsManagedByProvider())
		})
	}
}

func TestUser_IsMigratedTo(t *testing.T) {
	u := &User{MigrationStatus: MigrationStatusMigrated, ProviderUserID: strPtr("wos_1")}
	assert.True(t, u.IsMigratedTo("wos_1"))
	assert.False(t, u.IsMigratedTo("wos_2"))

	u.MigrationStatus = MigrationStatusNonMigrated
	assert.False(t, u.IsMigratedTo("wos_1"))

	assert.False(t, (&User{MigrationStatus: MigrationStatusMigrated}).IsMigratedTo(""))
}

func TestProviderName_Valid(t *testing.T) {
	assert.True(t, ProviderLegacy.Valid())
	assert.True(t, ProviderWorkOS.Valid())
	assert.True(t, ProviderAuth0.Valid())
	assert.False(t, ProviderName("okta").Valid())
	assert.False(t, ProviderName("").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
