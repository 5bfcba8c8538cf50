package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryReserveEnforcesWindowCeiling(t *testing.T) {
	g := newWithWindow(Config{RequestsPerMinute: 2}, 150*time.Millisecond)

	assert.True(t, g.tryReserve())
	assert.True(t, g.tryReserve())
	assert.False(t, g.tryReserve(), "third request inside the window must be refused")

	// Once the window rolls past the earlier dispatches, capacity
	// frees up again.
	time.Sleep(200 * time.Millisecond)
	assert.True(t, g.tryReserve())
}

func TestTryReserveUnlimitedWhenZero(t *testing.T) {
	g := newWithWindow(Config{RequestsPerMinute: 0}, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, g.tryReserve())
	}
}

func TestAdmitBlocksUntilWindowFrees(t *testing.T) {
	g := newWithWindow(Config{RequestsPerMinute: 1}, 300*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, g.Admit(ctx))

	start := time.Now()
	require.NoError(t, g.Admit(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond,
		"second admit must wait for the window to roll")
}

func TestAdmitHonorsCancellation(t *testing.T) {
	g := New(Config{RequestsPerMinute: 1, DelayMin: time.Hour, DelayMax: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Admit(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrencyWithinBounds(t *testing.T) {
	g := New(Config{ConcurrencyMin: 2, ConcurrencyMax: 4})
	for i := 0; i < 100; i++ {
		n := g.Concurrency()
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 4)
	}
}

func TestConcurrencyFixedWhenRangeCollapsed(t *testing.T) {
	g := New(Config{ConcurrencyMin: 3, ConcurrencyMax: 3})
	assert.Equal(t, 3, g.Concurrency())
}

func TestSessionLaunchDelayWithinBounds(t *testing.T) {
	g := New(Config{
		SessionDelayMin: 10 * time.Millisecond,
		SessionDelayMax: 50 * time.Millisecond,
	})
	for i := 0; i < 100; i++ {
		d := g.SessionLaunchDelay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
}

func TestFailureStreakTracking(t *testing.T) {
	g := New(Config{})

	assert.Equal(t, 0, g.FailureStreak())
	g.RecordFailure()
	g.RecordFailure()
	assert.Equal(t, 2, g.FailureStreak())

	g.RecordSuccess()
	assert.Equal(t, 0, g.FailureStreak(), "a success resets the streak")
}

func TestGetStats(t *testing.T) {
	g := newWithWindow(Config{RequestsPerMinute: 5}, time.Minute)

	require.True(t, g.tryReserve())
	require.True(t, g.tryReserve())
	g.RecordFailure()

	stats := g.GetStats()
	assert.Equal(t, 2, stats.RequestsLastMinute)
	assert.Equal(t, 5, stats.LimitPerMinute)
	assert.Equal(t, 3, stats.Remaining)
	assert.Equal(t, 1, stats.FailureStreak)
}

func TestMaxRetriesAndRotation(t *testing.T) {
	g := New(Config{MaxRetries: 3, RotateSession: true})
	assert.Equal(t, 3, g.MaxRetries())
	assert.True(t, g.ShouldRotateSession())
}
