package auth

import (
	"errors"
	"strings"

	"github.com/flowoff/assistente/pkg/crypto"
)

// ErrInvalidCredentials is returned when a login does not match the configured operator.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrAdminDisabled is returned when no operator password hash is configured.
var ErrAdminDisabled = errors.New("auth: admin login is not configured")

// AdminCredentials identifies the single operator account of the admin API.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether a password hash has been configured.
func (c AdminCredentials) Enabled() bool {
	return strings.TrimSpace(c.PasswordHash) != ""
}

// Validate reports a configured hash that bcrypt cannot use or that is too weak.
func (c AdminCredentials) Validate() error {
	if !c.Enabled() {
		return nil
	}
	return crypto.ValidateHash(strings.TrimSpace(c.PasswordHash))
}

// Authenticate checks username and password against the configured bcrypt hash.
func (c AdminCredentials) Authenticate(username, password string) error {
	if !c.Enabled() {
		return ErrAdminDisabled
	}
	userOK := crypto.EqualStrings(strings.TrimSpace(username), c.Username)
	// always run bcrypt so timing does not reveal the username
	passOK := crypto.VerifyPassword(c.PasswordHash, password)
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}
