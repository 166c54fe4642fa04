package checks

import (
	"context"
	"time"

	"github.com/flowoff/assistente/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger is satisfied by cache.ConnectionManager.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis probes the cache backend. A disabled backend reports up so operators can see
// that the database store is in use.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	switch {
	case !enabled:
		return monitoring.NewCheck("redis", staticResult(monitoring.StatusUp, "redis disabled"))
	case client == nil:
		return monitoring.NewCheck("redis", staticResult(monitoring.StatusDegraded, "redis unavailable"))
	}
	return pingCheck("redis", timeout, defaultRedisTimeout, client.Ping)
}
