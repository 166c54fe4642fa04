package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const defaultCheckTimeout = 5 * time.Second

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

func (s ProbeStatus) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b ProbeStatus) ProbeStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Optional  bool          `json:"optional,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results. Success is false only when the aggregate is down;
// a degraded service still answers traffic.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a single named dependency probe. A failing optional check degrades the
// aggregate status but never takes it down.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) ProbeResult
}

// NewCheck constructs a required health check.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// AsOptional marks the check as optional.
func (c Check) AsOptional() Check {
	c.Optional = true
	return c
}

// HealthManager coordinates liveness and readiness probes.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
	timeout   time.Duration
}

// NewHealthManager constructs an empty health manager. Each probe is bounded by timeout,
// or five seconds when timeout is not positive.
func NewHealthManager(timeout ...time.Duration) *HealthManager {
	m := &HealthManager{timeout: defaultCheckTimeout}
	if len(timeout) > 0 && timeout[0] > 0 {
		m.timeout = timeout[0]
	}
	return m
}

// RegisterLiveness appends a liveness probe.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.liveness = append(m.liveness, check)
	m.mu.Unlock()
}

// RegisterReadiness appends a readiness probe.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.readiness = append(m.readiness, check)
	m.mu.Unlock()
}

// EvaluateLiveness executes all configured liveness checks.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.liveness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

// EvaluateReadiness executes all configured readiness checks.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.readiness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

// evaluate runs checks concurrently; results keep registration order.
func (m *HealthManager) evaluate(ctx context.Context, checks []Check) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ProbeResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			results[i] = runCheck(probeCtx, check)
		}(i, check)
	}
	wg.Wait()

	status := StatusUp
	for _, result := range results {
		contribution := result.Status
		if result.Optional && contribution == StatusDown {
			contribution = StatusDegraded
		}
		status = Worst(status, contribution)
	}

	return HealthReport{
		Success: status != StatusDown,
		Status:  status,
		Checks:  results,
	}
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
		result.Optional = check.Optional
	}()

	return check.Run(ctx)
}

// ResultFromError converts a probe error into a ProbeResult. Timeouts are reported as
// degraded since the dependency may only be slow.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
