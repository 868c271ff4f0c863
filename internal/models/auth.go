package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess        = "access"
	TokenTypePasswordReset = "password_reset"
)

type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Tenant string `json:"tenant,omitempty"` // empty for the default tenant
	// PasswordFingerprint ties a reset token to the password it was issued against.
	PasswordFingerprint string `json:"pwf,omitempty"`
	jwt.RegisteredClaims
}
