package app

import (
	"strings"

	"github.com/flowoff/assistente/internal/auth"
)

// JWTServiceConfig maps the token settings; a missing TTL falls back to the default.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	cfg := auth.JWTConfig{
		Secret: c.JWT.Secret,
		Issuer: strings.TrimSpace(c.JWT.Issuer),
		TTL:    c.JWT.TTL,
		Leeway: c.JWT.Leeway,
	}
	if cfg.TTL <= 0 {
		cfg.TTL = auth.DefaultAccessTokenTTL
	}
	return cfg
}

// AdminCredentials converts the operator account settings for the token endpoint.
func (c AuthConfig) AdminCredentials() auth.AdminCredentials {
	return auth.AdminCredentials{
		Username:     strings.TrimSpace(c.Admin.Username),
		PasswordHash: strings.TrimSpace(c.Admin.PasswordHash),
	}
}
