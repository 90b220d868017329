package engine

import (
	"sync"

	"github.com/partyround/cartridge/internal/round"
)

// eventQueue is a thread-safe FIFO queue for lifecycle events.
//
// The queue is unbounded: timer fires and player events must never block
// the goroutines that produce them. Thread-safety exists for the enqueue
// side (network handlers, timer callbacks); only the actor's Run loop
// dequeues.
//
// A buffered signal channel lets the Run loop wait for events without
// spinning and still observe context cancellation.
type eventQueue struct {
	mu     sync.Mutex
	events []round.Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]round.Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue. Safe from any goroutine.
// Returns false if the queue has been closed.
func (q *eventQueue) Enqueue(ev round.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Non-blocking send: a buffer of one coalesces repeated signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (round.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return round.Event{}, false
	}

	ev := q.events[0]
	// Zero the slot so the backing array does not retain payload bytes.
	q.events[0] = round.Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// Wait returns the signal channel. Receiving from it means an event may be
// available; the channel closes when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close marks the queue closed and wakes any waiter. Subsequent Enqueue
// calls return false; queued events remain drainable.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
