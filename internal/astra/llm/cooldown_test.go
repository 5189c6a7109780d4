package llm

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the gate's notion of time and records requested sleeps
// instead of actually sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestGate(window time.Duration) (*cooldownGate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := newCooldownGate(window)
	g.now = clock.Now
	g.sleep = clock.Sleep
	return g, clock
}

func TestCooldown_NoFailureNoWait(t *testing.T) {
	g, clock := newTestGate(time.Minute)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("expected no sleep, got %v", clock.sleeps)
	}
}

func TestCooldown_WaitsOutRemainder(t *testing.T) {
	g, clock := newTestGate(time.Minute)

	g.Failure()
	clock.Advance(10 * time.Second)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 50*time.Second {
		t.Errorf("expected a single 50s wait, got %v", clock.sleeps)
	}
}

func TestCooldown_ExpiredWindowDispatchesImmediately(t *testing.T) {
	g, clock := newTestGate(time.Minute)

	g.Failure()
	clock.Advance(61 * time.Second)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("expected no sleep after window expiry, got %v", clock.sleeps)
	}
}

func TestCooldown_SuccessResetsFailure(t *testing.T) {
	g, clock := newTestGate(time.Minute)

	g.Failure()
	g.Success()
	clock.Advance(time.Second)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("expected no sleep after success reset, got %v", clock.sleeps)
	}
}

func TestCooldown_ConcurrentCallersDoNotQueue(t *testing.T) {
	// Real clock, short window: the first caller sleeps out the remainder
	// while a second caller arriving mid-wait proceeds immediately.
	g := newCooldownGate(200 * time.Millisecond)
	g.Failure()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		g.Wait(context.Background())
		close(done)
	}()

	<-started
	time.Sleep(20 * time.Millisecond) // let the first caller claim the wait

	secondStart := time.Now()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(secondStart); elapsed > 100*time.Millisecond {
		t.Errorf("second caller waited %v; expected immediate return", elapsed)
	}
	<-done
}

func TestCooldown_WaitCancellable(t *testing.T) {
	g, _ := newTestGate(time.Minute)
	g.sleep = sleepCtx // real sleep so cancellation matters
	g.Failure()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("expected context error from cancelled wait")
	}
}
