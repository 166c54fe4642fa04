package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/cache"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/response"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateStore counts requests for a key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// NewCacheRateStore counts requests in the shared cache store (INCR + EXPIRE), so every
// instance behind the same backend sees the same counters.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return storeRateStore{store: store}
}

type storeRateStore struct {
	store cache.Store
}

func (s storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return s.store.IncrementWithTTL(ctx, rateLimitKeyPrefix+key, window)
}

// NewMemoryRateStore constructs a process-local rate store.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{data: make(map[string]*memoryCounter), clock: time.Now}
}

type memoryRateStore struct {
	mu        sync.Mutex
	data      map[string]*memoryCounter
	clock     func() time.Time
	lastSweep time.Time
}

type memoryCounter struct {
	count     int64
	windowEnd time.Time
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > window {
		for k, counter := range s.data {
			if !now.Before(counter.windowEnd) {
				delete(s.data, k)
			}
		}
		s.lastSweep = now
	}

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++
	return counter.count, counter.windowEnd.Sub(now), nil
}

// RateLimit limits requests per (client IP, route) to maxRequests within window. When
// the store fails the request is allowed through and the failure logged.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	if store == nil {
		store = NewMemoryRateStore()
	}
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		count, ttl, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if ttl <= 0 {
			ttl = window
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))

		if count > int64(maxRequests) {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
