package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCappedBackoffDelay(t *testing.T) {
	b := CappedBackoff{Step: 50 * time.Millisecond, Cap: 2 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{10, 500 * time.Millisecond},
		{39, 1950 * time.Millisecond},
		{40, 2 * time.Second},
		{41, 2 * time.Second},
		{math.MaxInt, 2 * time.Second},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, b.Delay(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestCappedBackoffMonotonic(t *testing.T) {
	b := DefaultBackoff()
	prev := time.Duration(0)
	for attempt := 1; attempt <= 100; attempt++ {
		d := b.Delay(attempt)
		require.GreaterOrEqual(t, d, prev)
		require.LessOrEqual(t, d, b.Cap)
		prev = d
	}
}

func TestCappedBackoffZeroValueUsesDefaults(t *testing.T) {
	var b CappedBackoff
	require.Equal(t, defaultBackoffStep, b.Delay(1))
	require.Equal(t, defaultBackoffCap, b.Delay(1000))
}

func TestCappedBackoffCapBelowStep(t *testing.T) {
	b := CappedBackoff{Step: time.Second, Cap: 100 * time.Millisecond}
	require.Equal(t, 100*time.Millisecond, b.Delay(1))
}

func TestCappedBackoffUnevenCap(t *testing.T) {
	b := CappedBackoff{Step: 300 * time.Millisecond, Cap: time.Second}
	require.Equal(t, 900*time.Millisecond, b.Delay(3))
	require.Equal(t, time.Second, b.Delay(4))
}
