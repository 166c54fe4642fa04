package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/flowoff/assistente/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills settings that cannot have a static default and returns the
// keys it generated. Values are never returned so callers can log the keys safely.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var generated []string
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}
	return generated, nil
}

// Validate reports every setting that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.Requests <= 0 || rl.Window <= 0) {
		errs = multierr.Append(errs, errors.New("server.rate_limit requires positive requests and window"))
	}
	if c.Cache.TTL < 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache.ttl %d must not be negative", c.Cache.TTL))
	}
	if c.Backup.RetentionDays < 0 {
		errs = multierr.Append(errs, fmt.Errorf("backup.retention_days %d must not be negative", c.Backup.RetentionDays))
	}
	if strings.TrimSpace(c.Backup.Path) == "" {
		errs = multierr.Append(errs, errors.New("backup.path is required"))
	}
	if c.Maintenance.Enabled {
		errs = multierr.Append(errs, validateSchedule("backup.schedule", c.Backup.Schedule))
		errs = multierr.Append(errs, validateSchedule("maintenance.cache_expiry_schedule", c.Maintenance.CacheExpirySchedule))
		if c.Maintenance.AlertCooldown < 0 {
			errs = multierr.Append(errs, fmt.Errorf("maintenance.alert_cooldown %s must not be negative", c.Maintenance.AlertCooldown))
		}
	}
	if c.Email.SMTP.Enabled && c.Email.SMTP.Port <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("email.smtp.port %d out of range", c.Email.SMTP.Port))
	}
	return errs
}

func validateSchedule(key, spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
