package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignedPayloadExpiry is the lifetime of tokens minted from an upstream authorization payload.
const SignedPayloadExpiry = time.Hour

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret            string
	accessTokenExpiry time.Duration
	resetTokenExpiry  time.Duration
	now               func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, resetExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
		resetTokenExpiry:  resetExpiry,
		now:               time.Now,
	}
}

// GenerateAccessToken issues a session token bound to the user's tenant.
func (tm *TokenManager) GenerateAccessToken(user *models.User, tenantID string) (string, error) {
	return tm.generate(models.TokenTypeAccess, user, tenantID, tm.accessTokenExpiry)
}

// GeneratePasswordResetToken issues a single-purpose token for the reset flow.
// user must carry its password hash; the token stops validating once the
// password changes.
func (tm *TokenManager) GeneratePasswordResetToken(user *models.User, tenantID string) (string, error) {
	if user.PasswordHash == "" {
		return "", errors.New("password reset token requires the current password hash")
	}
	return tm.generate(models.TokenTypePasswordReset, user, tenantID, tm.resetTokenExpiry)
}

// PasswordFingerprint derives a short, non-reversible marker of a password hash.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:12])
}

// MatchesPassword reports whether a reset token was issued against passwordHash.
func MatchesPassword(claims *models.TokenClaims, passwordHash string) bool {
	if claims.PasswordFingerprint == "" || passwordHash == "" {
		return false
	}
	want := PasswordFingerprint(passwordHash)
	return subtle.ConstantTimeCompare([]byte(claims.PasswordFingerprint), []byte(want)) == 1
}

func (tm *TokenManager) generate(tokenType string, user *models.User, tenantID string, expiry time.Duration) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: user.ID,
		Email:  user.Email,
		Tenant: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	if tokenType == models.TokenTypePasswordReset {
		claims.PasswordFingerprint = PasswordFingerprint(user.PasswordHash)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// reservedClaims are set only by this package. Upstream payloads may not
// carry them, or a re-signed payload would pass as a local session.
var reservedClaims = []string{"type", "user_id", "tenant", "pwf"}

// SignPayload re-signs an arbitrary claim set with the local secret. Any
// exp or iat in the payload is replaced by a one hour validity window, and
// locally reserved claims are dropped.
func (tm *TokenManager) SignPayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "", errors.New("payload must be a JSON object")
	}

	now := tm.now()
	claims := make(jwt.MapClaims, len(payload)+2)
	for k, v := range payload {
		claims[k] = v
	}
	for _, k := range reservedClaims {
		delete(claims, k)
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(SignedPayloadExpiry).Unix()

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithTimeFunc(tm.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	// Validate token type
	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}
