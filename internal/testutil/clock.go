// Package testutil holds small helpers shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// FakeWallClock is a manually advanced engine.WallClock. Tests pin the
// actor's timestamps to a known instant so emitted facts are byte-stable
// across runs.
//
// Thread-safe: the actor reads the clock from its run goroutine while the
// test advances it from another.
type FakeWallClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeWallClock creates a clock frozen at the given instant.
func NewFakeWallClock(now time.Time) *FakeWallClock {
	return &FakeWallClock{now: now.UTC()}
}

// Now returns the current frozen instant.
func (c *FakeWallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. It never fires timers; the real
// scheduling stays with the actor.
func (c *FakeWallClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to a specific instant.
func (c *FakeWallClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}
