package cache

import "time"

const (
	defaultBackoffStep = 50 * time.Millisecond
	defaultBackoffCap  = 2 * time.Second
)

// BackoffPolicy computes the wait before reconnect attempt n (n >= 1).
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// CappedBackoff grows the delay by Step for every attempt and never exceeds Cap:
//
//	delay = min(attempt * Step, Cap)
//
// It places no bound on the number of attempts; callers decide when to give up.
type CappedBackoff struct {
	Step time.Duration
	Cap  time.Duration
}

// DefaultBackoff returns the 50ms step / 2s cap policy.
func DefaultBackoff() CappedBackoff {
	return CappedBackoff{Step: defaultBackoffStep, Cap: defaultBackoffCap}
}

// Delay implements BackoffPolicy.
func (b CappedBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	step := b.Step
	if step <= 0 {
		step = defaultBackoffStep
	}
	limit := b.Cap
	if limit <= 0 {
		limit = defaultBackoffCap
	}
	if limit < step {
		return limit
	}
	// Compare in attempts to avoid overflowing attempt*step.
	if attempt > int(limit/step) {
		return limit
	}
	return time.Duration(attempt) * step
}
