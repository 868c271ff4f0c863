package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/models"
	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Register
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	f := NewTestFixture()

	resp, err := f.Auth.Register(Ctx("acme"), "user@example.com", "secret1")
	require.NoError(t, err)

	require.NotNil(t, resp.User)
	assert.Equal(t, "user@example.com", resp.User.Email)
	assert.Equal(t, "non-migrated", resp.User.MigrationStatus)
	assert.Equal(t, "legacy", resp.User.ProviderName)

	claims, err := f.Tokens.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "acme", claims.Tenant)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := NewTestFixture()
	f.Seed("acme", "u1", "user@example.com", "secret1")

	_, err := f.Auth.Register(Ctx("acme"), "user@example.com", "other12")
	assert.ErrorIs(t, err, models.ErrConflict)
}

// ============================================================================
// Login
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")

	resp, err := f.Auth.Login(Ctx(""), " User@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_Login_FailuresAreIdentical(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")
	disabled := f.Seed("", "u2", "disabled@example.com", "secret1")
	disabled.Enabled = false
	f.Repo("").Put(disabled)

	cases := map[string][2]string{
		"wrong password": {"user@example.com", "wrong"},
		"unknown email":  {"nobody@example.com", "secret1"},
		"disabled user":  {"disabled@example.com", "secret1"},
		"empty email":    {"", "secret1"},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := f.Auth.Login(Ctx(""), c[0], c[1])
			assert.Nil(t, resp)
			assert.Equal(t, models.ErrUnauthorized, err)
		})
	}
}

func TestAuthService_Login_StoreErrorIsNotUnauthorized(t *testing.T) {
	f := NewTestFixture()
	f.Repo("").FindByEmailFunc = func(ctx context.Context, email string, withHash bool) (*models.User, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.Auth.Login(Ctx(""), "user@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_Login_PadsFailures(t *testing.T) {
	f := NewTestFixture()
	logger := TestLogger()
	f.Auth = NewAuthService(f.Users, f.Tokens, f.Authz,
		auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 60}),
		logger, pkglogger.NewAuditLogger(logger))

	start := time.Now()
	_, err := f.Auth.Login(Ctx(""), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestAuthService_Login_WrongTenant(t *testing.T) {
	f := NewTestFixture()
	f.Seed("acme", "u1", "user@example.com", "secret1")

	_, err := f.Auth.Login(Ctx("oak"), "user@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.Auth.Login(Ctx("acme"), "user@example.com", "secret1")
	assert.NoError(t, err)
}

// ============================================================================
// ChangePassword
// ============================================================================

func TestAuthService_ChangePassword_Success(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")
	ctx := Ctx("")

	require.NoError(t, f.Auth.ChangePassword(ctx, "u1", "secret1", "newsecret"))

	_, err := f.Auth.Login(ctx, "user@example.com", "newsecret")
	assert.NoError(t, err)
	_, err = f.Auth.Login(ctx, "user@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")

	err := f.Auth.ChangePassword(Ctx(""), "u1", "wrong", "newsecret")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_ChangePassword_ManagedByProvider(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")
	ctx := Ctx("")
	_, err := f.Users.MarkMigrated(ctx, "user@example.com", "workos_user_123", models.ProviderWorkOS)
	require.NoError(t, err)

	// Refused even with the correct current password
	err = f.Auth.ChangePassword(ctx, "u1", "secret1", "newsecret")
	assert.ErrorIs(t, err, models.ErrPasswordManagedByProvider)

	// And checked before the current password
	err = f.Auth.ChangePassword(ctx, "u1", "wrong", "newsecret")
	assert.ErrorIs(t, err, models.ErrPasswordManagedByProvider)

	stored := f.Repo("").Get("u1")
	assert.True(t, f.Hasher.Verify(stored.PasswordHash, "secret1"))
}

func TestAuthService_ChangePassword_MigratedToLegacyAllowed(t *testing.T) {
	f := NewTestFixture()
	f.Seed("", "u1", "user@example.com", "secret1")
	ctx := Ctx("")
	_, err := f.Users.MarkMigrated(ctx, "user@example.com", "legacy-1", models.ProviderLegacy)
	require.NoError(t, err)

	assert.NoError(t, f.Auth.ChangePassword(ctx, "u1", "secret1", "newsecret"))
}

func TestAuthService_ChangePassword_UnknownUser(t *testing.T) {
	f := NewTestFixture()

	err := f.Auth.ChangePassword(Ctx(""), "missing", "secret1", "newsecret")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// ============================================================================
// ResetPassword
// ============================================================================

func TestAuthService_ResetPassword(t *testing.T) {
	f := NewTestFixture()
	seeded := f.Seed("acme", "u1", "user@example.com", "secret1")
	token, err := f.Tokens.GeneratePasswordResetToken(seeded, "acme")
	require.NoError(t, err)

	require.NoError(t, f.Auth.ResetPassword(Ctx("acme"), token, "newsecret"))

	stored := f.Repo("acme").Get("u1")
	assert.True(t, f.Hasher.Verify(stored.PasswordHash, "newsecret"))
}

func TestAuthService_ResetPassword_TokenSingleUse(t *testing.T) {
	f := NewTestFixture()
	seeded := f.Seed("acme", "u1", "user@example.com", "secret1")
	token, err := f.Tokens.GeneratePasswordResetToken(seeded, "acme")
	require.NoError(t, err)

	require.NoError(t, f.Auth.ResetPassword(Ctx("acme"), token, "newsecret"))
	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("acme"), token, "attacker1"), models.ErrUnauthorized)

	stored := f.Repo("acme").Get("u1")
	assert.True(t, f.Hasher.Verify(stored.PasswordHash, "newsecret"))
}

func TestAuthService_ResetPassword_SpentByPasswordChange(t *testing.T) {
	f := NewTestFixture()
	seeded := f.Seed("acme", "u1", "user@example.com", "secret1")
	token, err := f.Tokens.GeneratePasswordResetToken(seeded, "acme")
	require.NoError(t, err)

	require.NoError(t, f.Auth.ChangePassword(Ctx("acme"), "u1", "secret1", "changed1"))

	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("acme"), token, "newsecret"), models.ErrUnauthorized)
}

func TestAuthService_ResetPassword_Rejections(t *testing.T) {
	f := NewTestFixture()
	seeded := f.Seed("acme", "u1", "user@example.com", "secret1")

	resetToken, err := f.Tokens.GeneratePasswordResetToken(seeded, "acme")
	require.NoError(t, err)
	accessToken, err := f.Tokens.GenerateAccessToken(seeded, "acme")
	require.NoError(t, err)

	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("oak"), resetToken, "newsecret"), models.ErrUnauthorized)
	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("acme"), accessToken, "newsecret"), models.ErrUnauthorized)
	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("acme"), "garbage", "newsecret"), models.ErrUnauthorized)

	_, err = f.Users.MarkMigrated(Ctx("acme"), "user@example.com", "workos_user_123", models.ProviderWorkOS)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Auth.ResetPassword(Ctx("acme"), resetToken, "newsecret"), models.ErrPasswordManagedByProvider)
}

// ============================================================================
// Authorize / Me
// ============================================================================

func TestAuthService_Authorize_ResignsPayload(t *testing.T) {
	f := NewTestFixture()
	f.Authz.ExchangeFunc = func(ctx context.Context, code, codeVerifier string) (map[string]any, error) {
		assert.Equal(t, "abc", code)
		assert.Equal(t, "verifier", codeVerifier)
		return map[string]any{"sub": "ext-1", "email": "ext@example.com"}, nil
	}

	token, err := f.Auth.Authorize(Ctx(""), "abc", "verifier")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(TestJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", claims["sub"])
	assert.Equal(t, "ext@example.com", claims["email"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, 5*time.Second)
}

func TestAuthService_Authorize_UpstreamFailure(t *testing.T) {
	f := NewTestFixture()
	f.Authz.ExchangeFunc = func(ctx context.Context, code, codeVerifier string) (map[string]any, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.Auth.Authorize(Ctx(""), "abc", "verifier")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestAuthService_Me(t *testing.T) {
	f := NewTestFixture()
	f.Seed("acme", "u1", "user@example.com", "secret1")

	resp, err := f.Auth.Me(Ctx("acme"), "u1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", resp.Email)

	_, err = f.Auth.Me(Ctx("oak"), "u1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
