package app

import (
	"strings"
	"time"

	"github.com/flowoff/assistente/internal/cache"
)

// DefaultTTL returns the configured default expiry, falling back to cache.DefaultTTL.
func (c CacheConfig) DefaultTTL() time.Duration {
	if c.TTL <= 0 {
		return cache.DefaultTTL
	}
	return time.Duration(c.TTL) * time.Second
}

// Options converts the facade settings into the cache package representation.
func (c CacheConfig) Options() cache.Options {
	return cache.Options{
		DefaultTTL: c.DefaultTTL(),
		AllowClear: c.AllowClear,
	}
}

// ConnectionConfig converts the Redis settings into the connection manager representation.
func (c CacheConfig) ConnectionConfig() cache.ConnectionConfig {
	cfg := cache.ConnectionConfig{
		URL:                  strings.TrimSpace(c.Redis.URL),
		Address:              strings.TrimSpace(c.Redis.Address),
		Username:             strings.TrimSpace(c.Redis.Username),
		Password:             c.Redis.Password,
		DB:                   c.Redis.DB,
		TLS:                  c.Redis.TLS,
		DialTimeout:          c.Redis.Timeout,
		MaxRetriesPerRequest: c.Redis.MaxRetriesPerRequest,
		HealthCheckInterval:  c.Redis.HealthCheckInterval,
		MaxAttempts:          c.Redis.MaxAttempts,
	}
	if c.Redis.Backoff.Step > 0 || c.Redis.Backoff.Cap > 0 {
		cfg.Backoff = cache.CappedBackoff{Step: c.Redis.Backoff.Step, Cap: c.Redis.Backoff.Cap}
	}
	return cfg
}
