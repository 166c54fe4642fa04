package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/pkg/crypto"
)

func TestAdminCredentialsAuthenticate(t *testing.T) {
	hash, err := crypto.HashPassword("s3cret")
	require.NoError(t, err)
	creds := AdminCredentials{Username: "admin", PasswordHash: hash}

	require.True(t, creds.Enabled())
	require.NoError(t, creds.Authenticate("admin", "s3cret"))
	require.NoError(t, creds.Authenticate(" admin ", "s3cret"))
	require.ErrorIs(t, creds.Authenticate("admin", "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, creds.Authenticate("root", "s3cret"), ErrInvalidCredentials)
}

func TestAdminCredentialsDisabled(t *testing.T) {
	creds := AdminCredentials{Username: "admin"}
	require.False(t, creds.Enabled())
	require.ErrorIs(t, creds.Authenticate("admin", ""), ErrAdminDisabled)
	require.NoError(t, creds.Validate())
}

func TestAdminCredentialsValidate(t *testing.T) {
	hash, err := crypto.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, AdminCredentials{Username: "admin", PasswordHash: hash}.Validate())
	require.Error(t, AdminCredentials{Username: "admin", PasswordHash: "s3cret"}.Validate())
}
