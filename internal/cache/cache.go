package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/pkg/logger"
)

// DefaultTTL applies when neither the caller nor the configuration supplies one.
const DefaultTTL = time.Hour

var (
	// ErrMiss reports that the key is absent or expired.
	ErrMiss = errors.New("cache: miss")
	// ErrClearDisabled is returned by Clear unless clearing was enabled in configuration.
	ErrClearDisabled = errors.New("cache: clear is disabled")
	// ErrInvalidTTL is returned when an expiry update is requested with a non-positive ttl.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
)

// Options tunes the cache facade.
type Options struct {
	DefaultTTL time.Duration
	AllowClear bool
}

// Cache stores JSON encoded values in a Store and reports misses and failures
// as distinct outcomes.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	allowClear bool
	log        *zap.Logger
}

// New wraps store with JSON serialisation and default expiry handling.
func New(store Store, opts Options) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:      store,
		defaultTTL: ttl,
		allowClear: opts.AllowClear,
		log:        logger.WithModule("cache"),
	}, nil
}

// DefaultTTL returns the expiry applied when Set is called without a ttl.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Store exposes the underlying raw store, used by the rate limiter.
func (c *Cache) Store() Store {
	return c.store
}

// Get decodes the value stored at key into dest. It returns ErrMiss when the key is absent.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.observe("get", err)
		return fmt.Errorf("cache: get %q: %w", key, err)
	}
	if !found {
		monitoring.RecordCacheOperation("get", "miss")
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.observe("get", err)
		return fmt.Errorf("cache: decode %q: %w", key, err)
	}
	monitoring.RecordCacheOperation("get", "hit")
	return nil
}

// Set encodes value as JSON and stores it. The first positive ttl wins; otherwise the
// default ttl applies.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl ...time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("cache: key is required")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.observe("set", err)
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}

	expiry := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		expiry = ttl[0]
	}
	if err := c.store.Set(ctx, key, payload, expiry); err != nil {
		c.observe("set", err)
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	c.observe("set", nil)
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.store.Delete(ctx, key)
	c.observe("delete", err)
	if err != nil {
		return fmt.Errorf("cache: delete %q: %w", key, err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	found, err := c.store.Exists(ctx, key)
	c.observe("exists", err)
	if err != nil {
		return false, fmt.Errorf("cache: exists %q: %w", key, err)
	}
	return found, nil
}

// Increment adds one to the integer counter at key, starting from zero when absent.
func (c *Cache) Increment(ctx context.Context, key string) (int64, error) {
	n, err := c.store.Increment(ctx, key)
	c.observe("increment", err)
	if err != nil {
		return 0, fmt.Errorf("cache: increment %q: %w", key, err)
	}
	return n, nil
}

// Expire sets a new ttl on an existing key and reports whether the key was present.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	ok, err := c.store.Expire(ctx, key, ttl)
	c.observe("expire", err)
	if err != nil {
		return false, fmt.Errorf("cache: expire %q: %w", key, err)
	}
	return ok, nil
}

// Clear removes every key owned by the cache. It is refused unless AllowClear was set.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.allowClear {
		monitoring.RecordCacheOperation("clear", "refused")
		return ErrClearDisabled
	}
	removed, err := c.store.Clear(ctx)
	c.observe("clear", err)
	if err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	c.log.Warn("cache cleared", zap.Int64("removed", removed))
	return nil
}

func (c *Cache) observe(op string, err error) {
	if err != nil {
		monitoring.RecordCacheOperation(op, "error")
		return
	}
	monitoring.RecordCacheOperation(op, "ok")
}
