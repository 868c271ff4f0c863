package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secretsystem1@")
	require.NoError(t, err)
	assert.NotEqual(t, "Secretsystem1@", hash)

	assert.True(t, h.Verify(hash, "Secretsystem1@"))
	assert.False(t, h.Verify(hash, "secretsystem1@"))
	assert.False(t, h.Verify(hash, ""))
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("pw123456")
	require.NoError(t, err)
	b, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_UsesConfiguredCost(t *testing.T) {
	h := NewPasswordHasher(5)
	hash, err := h.Hash("pw123456")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestNewPasswordHasher_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(99).Cost())
	assert.Equal(t, 12, NewPasswordHasher(12).Cost())
}

func TestPasswordHasher_RejectsEmptyAndOversized(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.Error(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordLen+1))
	assert.Error(t, err)
}

func TestPasswordHasher_VerifyEmptyHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("", "anything"))
	assert.False(t, h.Verify("not-a-bcrypt-hash", "anything"))
}
