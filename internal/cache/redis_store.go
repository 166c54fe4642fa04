package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 500

// RedisStore implements Store on top of a shared go-redis client. Keys are prefixed
// with the configured namespace so Clear can be scoped to this application's keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty namespace leaves keys unprefixed.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{client: client, prefix: namespacePrefix(namespace)}
}

// Get retrieves the raw value of key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes value; a non-positive ttl stores it without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefixed(key), value, ttl).Err()
}

// Delete removes one or more keys, ignoring missing keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefixed(key))
	}
	return s.client.Del(ctx, prefixed...).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefixed(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, s.prefixed(key)).Result()
}

// IncrementWithTTL increments key and arms its expiry when the counter is fresh.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	prefixedKey := s.prefixed(key)
	count, err := s.client.Incr(ctx, prefixedKey).Result()
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, prefixedKey, window).Err(); err != nil {
			return 0, 0, err
		}
	}

	ttl, err := s.client.PTTL(ctx, prefixedKey).Result()
	if err != nil || ttl < 0 {
		return count, window, nil
	}
	return count, ttl, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.PExpire(ctx, s.prefixed(key), ttl).Result()
}

// Clear removes every key under the namespace using SCAN and UNLINK. Without a
// namespace the whole logical database is flushed.
func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	if s.prefix == "" {
		size, err := s.client.DBSize(ctx).Result()
		if err != nil {
			return 0, err
		}
		if err := s.client.FlushDB(ctx).Err(); err != nil {
			return 0, err
		}
		return size, nil
	}

	var (
		removed int64
		cursor  uint64
	)
	pattern := escapeGlob(s.prefix) + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := s.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (s *RedisStore) prefixed(key string) string {
	return s.prefix + key
}

func escapeGlob(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
