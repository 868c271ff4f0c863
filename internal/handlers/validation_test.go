package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_UsesJSONFieldNames(t *testing.T) {
	err := ValidateRequest(&ChangePasswordRequest{CurrentPassword: "x", NewPassword: "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new_password")
	assert.Contains(t, err.Error(), "minimum of 6")
}

func TestValidationErrors_ReportsEveryField(t *testing.T) {
	errs := ValidationErrors(&MarkUserMigratedRequest{ProviderName: "okta"})

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"email", "provider_user_id", "provider_name"}, fields)
}

func TestValidateRequest_Valid(t *testing.T) {
	assert.NoError(t, ValidateRequest(&MarkUserMigratedRequest{
		Email:          "user@example.com",
		ProviderUserID: "workos_user_123",
		ProviderName:   "auth0",
	}))
	assert.NoError(t, ValidateRequest(&MarkUserMigratedRequest{
		Email:          "user@example.com",
		ProviderUserID: "workos_user_123",
	}))
}
