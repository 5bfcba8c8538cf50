// Package governor bounds how many pages are fetched and how fast.
// It combines a rolling requests-per-minute ceiling with randomized
// per-request delays so the crawl never settles into the fixed
// cadence anti-bot systems fingerprint.
package governor

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Config carries the pacing knobs, already validated by the config
// package (min <= max for every pair, nothing negative).
type Config struct {
	ConcurrencyMin    int
	ConcurrencyMax    int
	RequestsPerMinute int
	DelayMin          time.Duration
	DelayMax          time.Duration
	RotateSession     bool
	SessionDelayMin   time.Duration
	SessionDelayMax   time.Duration
	MaxRetries        int
}

// Governor is safe for concurrent use by the worker pool.
type Governor struct {
	cfg    Config
	window time.Duration

	mu       sync.Mutex
	requests []time.Time
	streak   int
	rng      *rand.Rand
}

// Stats is a point-in-time view of governor state.
type Stats struct {
	RequestsLastMinute int `json:"requests_last_minute"`
	LimitPerMinute     int `json:"limit_per_minute"`
	Remaining          int `json:"remaining"`
	FailureStreak      int `json:"failure_streak"`
}

// New returns a governor enforcing cfg over a one-minute window.
func New(cfg Config) *Governor {
	return newWithWindow(cfg, time.Minute)
}

// newWithWindow exists so tests can shrink the rolling window.
func newWithWindow(cfg Config, window time.Duration) *Governor {
	return &Governor{
		cfg:    cfg,
		window: window,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Admit gates one fetch. It first sleeps a random delay drawn from
// [DelayMin, DelayMax], then blocks until the rolling window has room
// under the requests-per-minute ceiling, recording the dispatch.
// Returns early with the context's error on cancellation.
func (g *Governor) Admit(ctx context.Context) error {
	if d := g.requestDelay(); d > 0 {
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}

	for {
		if g.tryReserve() {
			return nil
		}
		if err := sleep(ctx, 250*time.Millisecond); err != nil {
			return err
		}
	}
}

// tryReserve records a dispatch if the rolling window has room.
func (g *Governor) tryReserve() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.prune(now)

	if g.cfg.RequestsPerMinute > 0 && len(g.requests) >= g.cfg.RequestsPerMinute {
		return false
	}
	g.requests = append(g.requests, now)
	return true
}

// prune drops dispatches older than the rolling window. Callers hold mu.
func (g *Governor) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	kept := g.requests[:0]
	for _, t := range g.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.requests = kept
}

// Concurrency picks the worker-pool size for a draining pass,
// uniformly from [ConcurrencyMin, ConcurrencyMax].
func (g *Governor) Concurrency() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cfg.ConcurrencyMax <= g.cfg.ConcurrencyMin {
		return g.cfg.ConcurrencyMin
	}
	return g.cfg.ConcurrencyMin + g.rng.Intn(g.cfg.ConcurrencyMax-g.cfg.ConcurrencyMin+1)
}

// ShouldRotateSession reports whether the browsing session is
// discarded and re-acquired after each property fetch.
func (g *Governor) ShouldRotateSession() bool {
	return g.cfg.RotateSession
}

// SessionLaunchDelay draws the random pause applied before launching
// a fresh browsing session.
func (g *Governor) SessionLaunchDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.randomBetween(g.cfg.SessionDelayMin, g.cfg.SessionDelayMax)
}

// MaxRetries is the per-URL fetch retry ceiling.
func (g *Governor) MaxRetries() int {
	return g.cfg.MaxRetries
}

// RecordSuccess resets the consecutive-failure streak.
func (g *Governor) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.streak = 0
}

// RecordFailure bumps the consecutive-failure streak.
func (g *Governor) RecordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.streak++
}

// FailureStreak returns the current consecutive-failure count. The
// orchestrator uses it to pause between batches when the remote looks
// hostile; it never blocks a single URL past the retry ceiling.
func (g *Governor) FailureStreak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.streak
}

// GetStats returns current pacing statistics.
func (g *Governor) GetStats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(time.Now())
	remaining := g.cfg.RequestsPerMinute - len(g.requests)
	if remaining < 0 {
		remaining = 0
	}
	return Stats{
		RequestsLastMinute: len(g.requests),
		LimitPerMinute:     g.cfg.RequestsPerMinute,
		Remaining:          remaining,
		FailureStreak:      g.streak,
	}
}

func (g *Governor) requestDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.randomBetween(g.cfg.DelayMin, g.cfg.DelayMax)
}

// randomBetween draws uniformly from [lo, hi]. Callers hold mu.
func (g *Governor) randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(g.rng.Int63n(int64(hi-lo)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
