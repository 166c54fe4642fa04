package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	require.True(t, VerifyPassword(hash, "secret"))
	require.False(t, VerifyPassword(hash, "incorrect"))
	require.False(t, VerifyPassword("not-a-hash", "secret"))

	_, err = HashPassword("")
	require.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	require.NoError(t, err)
	require.Len(t, token, 43)

	other, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestValidateHash(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, ValidateHash(hash))

	weak, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.ErrorContains(t, ValidateHash(string(weak)), "below")

	require.ErrorContains(t, ValidateHash("plaintext"), "not a bcrypt hash")
}

func TestEqualStrings(t *testing.T) {
	require.True(t, EqualStrings("admin", "admin"))
	require.False(t, EqualStrings("admin", "Admin"))
	require.False(t, EqualStrings("admin", "admin "))
}
