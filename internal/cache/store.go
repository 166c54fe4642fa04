package cache

import (
	"context"
	"strings"
	"time"
)

// Store represents the raw key-value backend shared across the application.
// Values are opaque bytes; encoding is the caller's concern. Keys are stored exactly
// as given, apart from the store's own namespace prefix.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value with expiry ttl. A non-positive ttl stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Increment adds one to the integer stored at key, creating it at 1 when absent.
	Increment(ctx context.Context, key string) (int64, error)
	// IncrementWithTTL increments key and sets the expiry to window when the counter is new.
	// It returns the current count and the remaining time-to-live.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Expire updates the expiry of an existing key, reporting false when the key is absent.
	// ttl must be positive.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Clear removes every key owned by the store and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}

// namespacePrefix turns a configured namespace into a key prefix ending in a single colon.
func namespacePrefix(namespace string) string {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		return ""
	}
	return namespace + ":"
}
