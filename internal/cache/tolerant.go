package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Tolerant adapts Cache to a fire-and-forget contract: failures are logged and reported
// as false instead of being returned. Callers cannot tell a miss from a backend fault.
type Tolerant struct {
	cache *Cache
}

// NewTolerant wraps c.
func NewTolerant(c *Cache) *Tolerant {
	return &Tolerant{cache: c}
}

// Get decodes the cached value into dest and reports whether it was found.
func (t *Tolerant) Get(ctx context.Context, key string, dest any) bool {
	err := t.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMiss) {
		t.fail("get", key, err)
	}
	return false
}

func (t *Tolerant) Set(ctx context.Context, key string, value any, ttl ...time.Duration) bool {
	return t.check("set", key, t.cache.Set(ctx, key, value, ttl...))
}

func (t *Tolerant) Del(ctx context.Context, key string) bool {
	return t.check("delete", key, t.cache.Delete(ctx, key))
}

func (t *Tolerant) Exists(ctx context.Context, key string) bool {
	found, err := t.cache.Exists(ctx, key)
	return t.check("exists", key, err) && found
}

// Increment returns the new counter value, or false when the backend failed.
func (t *Tolerant) Increment(ctx context.Context, key string) (int64, bool) {
	n, err := t.cache.Increment(ctx, key)
	if !t.check("increment", key, err) {
		return 0, false
	}
	return n, true
}

func (t *Tolerant) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := t.cache.Expire(ctx, key, ttl)
	return t.check("expire", key, err) && ok
}

func (t *Tolerant) Clear(ctx context.Context) bool {
	return t.check("clear", "", t.cache.Clear(ctx))
}

func (t *Tolerant) check(op, key string, err error) bool {
	if err != nil {
		t.fail(op, key, err)
		return false
	}
	return true
}

func (t *Tolerant) fail(op, key string, err error) {
	t.cache.log.Error("cache operation failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
