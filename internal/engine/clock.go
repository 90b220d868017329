package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock used to stamp fact sequence numbers.
//
// Every fact an actor emits carries a strictly increasing seq from this
// clock, which gives downstream consumers a total order independent of
// wall-clock resolution.
//
// Thread-safety: safe for concurrent use, though the actor's single-writer
// loop means only one goroutine normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// WallClock supplies server-authoritative timestamps. Machines never read
// time themselves; the actor passes now into every transition so the same
// event stream replays to the same timestamps under a test clock.
type WallClock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now implements WallClock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
