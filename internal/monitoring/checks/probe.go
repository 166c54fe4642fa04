package checks

import (
	"context"
	"time"

	"github.com/flowoff/assistente/internal/monitoring"
)

// pingCheck wraps a ping function into a required check bounded by timeout.
func pingCheck(name string, timeout, fallback time.Duration, ping func(ctx context.Context) error) monitoring.Check {
	if timeout <= 0 {
		timeout = fallback
	}
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return monitoring.ResultFromError(name, ping(probeCtx), time.Since(start))
	})
}

func staticResult(status monitoring.ProbeStatus, details string) func(context.Context) monitoring.ProbeResult {
	return func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: status, Details: details}
	}
}
