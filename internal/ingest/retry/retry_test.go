package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fastPolicy keeps the loop busy without real sleeps dominating the test run.
func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Initial:    time.Millisecond,
		Max:        5 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	out := Do(context.Background(), fastPolicy(3),
		func(context.Context) (int, error) { return 42, nil },
		nil, nil)

	require.True(t, out.OK)
	require.Equal(t, 42, out.Value)
	require.Equal(t, 1, out.Attempts)
	require.NoError(t, out.Err)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	out := Do(context.Background(), fastPolicy(5),
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errBoom
			}
			return "ok", nil
		},
		nil, nil)

	require.True(t, out.OK)
	require.Equal(t, "ok", out.Value)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	out := Do(context.Background(), fastPolicy(2),
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		},
		nil, nil)

	require.False(t, out.OK)
	require.ErrorIs(t, out.Err, errBoom)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, calls)
	require.Greater(t, out.Elapsed, time.Duration(0))
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	out := Do(context.Background(), fastPolicy(5),
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		},
		func(error) bool { return false },
		nil)

	require.False(t, out.OK)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var attempts []int
	out := Do(context.Background(), fastPolicy(2),
		func(context.Context) (int, error) { return 0, errBoom },
		nil,
		func(attempt int, err error) {
			require.ErrorIs(t, err, errBoom)
			attempts = append(attempts, attempt)
		})

	require.False(t, out.OK)
	// Called before each retry sleep, not after the final attempt.
	require.Equal(t, []int{0, 1}, attempts)
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 5, Initial: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	out := Do(ctx, p,
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		},
		nil, nil)

	require.False(t, out.OK)
	require.ErrorIs(t, out.Err, errBoom)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), time.Second)
}

func TestDo_ContextAlreadyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Do(ctx, fastPolicy(3),
		func(context.Context) (int, error) {
			t.Fatal("operation must not run")
			return 0, nil
		},
		nil, nil)

	require.False(t, out.OK)
	require.ErrorIs(t, out.Err, context.Canceled)
	require.Equal(t, 0, out.Attempts)
}

func TestBackoff_Schedule(t *testing.T) {
	t.Parallel()

	p := Policy{Initial: time.Second, Max: 60 * time.Second, Multiplier: 2}

	// Jitter is bounded at ±10%, so each attempt's delay sits in a known band
	// and the bands do not overlap until the cap.
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := p.Backoff(attempt)
		lo := time.Duration(float64(base) * 0.9)
		hi := time.Duration(float64(base) * 1.1)
		require.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
		require.LessOrEqual(t, d, hi, "attempt %d", attempt)
	}

	// Far attempts are capped at max (modulo jitter).
	d := p.Backoff(20)
	require.LessOrEqual(t, d, 66*time.Second)
	require.GreaterOrEqual(t, d, 54*time.Second)
}

func TestBackoff_Defaults(t *testing.T) {
	t.Parallel()

	var p Policy
	d := p.Backoff(0)
	require.GreaterOrEqual(t, d, 900*time.Millisecond)
	require.LessOrEqual(t, d, 1100*time.Millisecond)
}
