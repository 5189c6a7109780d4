package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultCooldownWindow is the mandatory wait imposed after a transport
// failure before the next call may dispatch.
const DefaultCooldownWindow = 60 * time.Second

// cooldownGate tracks the last transport failure and makes the next caller
// wait out the remainder of the cooldown window. Only one caller performs
// the wait; concurrent callers that arrive while someone is already waiting
// proceed immediately rather than queuing.
//
// The gate is owned by a Client instance — there is no package-level state.
type cooldownGate struct {
	mu        sync.Mutex
	window    time.Duration
	lastError time.Time
	waiting   bool

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newCooldownGate(window time.Duration) *cooldownGate {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &cooldownGate{
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks for the remainder of the cooldown window when a failure was
// recorded less than one window ago. Returns the context error if the
// caller is cancelled mid-wait.
func (g *cooldownGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	remaining := g.remainingLocked(g.now())
	if remaining <= 0 || g.waiting {
		g.mu.Unlock()
		return nil
	}
	g.waiting = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.waiting = false
		g.mu.Unlock()
	}()
	return g.sleep(ctx, remaining)
}

// Failure records the current time as the last failure.
func (g *cooldownGate) Failure() {
	g.mu.Lock()
	g.lastError = g.now()
	g.mu.Unlock()
}

// Success clears the failure state so subsequent calls dispatch immediately.
func (g *cooldownGate) Success() {
	g.mu.Lock()
	g.lastError = time.Time{}
	g.mu.Unlock()
}

// remainingLocked computes the wait still owed at instant now.
// Must be called with mu held.
func (g *cooldownGate) remainingLocked(now time.Time) time.Duration {
	if g.lastError.IsZero() {
		return 0
	}
	return g.window - now.Sub(g.lastError)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
