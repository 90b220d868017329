package engine

import (
	"sort"
	"time"

	"github.com/partyround/cartridge/internal/round"
)

// Driver applies events to a machine synchronously under a simulated wall
// clock. It exists for tests, the scenario harness and bulk simulation:
// the same machine code that runs under an Actor in production runs under a
// Driver with fully deterministic time, timers and sequence numbers.
type Driver struct {
	machine Machine
	clock   *Clock
	now     time.Time
	facts   []round.Fact
	done    bool
	output  *round.Outcome

	timers []pendingTimer
	nextID int64
}

type pendingTimer struct {
	name string
	due  time.Time
	// id breaks ties for timers due at the same instant: scheduling order
	// wins, matching the FIFO behavior of the real queue.
	id int64
}

// NewDriver creates a driver and applies the machine's Begin transition at
// the given start time.
func NewDriver(m Machine, start time.Time) *Driver {
	d := &Driver{
		machine: m,
		clock:   NewClock(),
		now:     start,
	}
	d.apply(m.Begin(start))
	return d
}

// Now returns the simulated current time.
func (d *Driver) Now() time.Time {
	return d.now
}

// Done reports whether the machine reached its terminal phase.
func (d *Driver) Done() bool {
	return d.done
}

// Output returns the final outcome, or nil while running.
func (d *Driver) Output() *round.Outcome {
	return d.output
}

// Facts returns all stamped facts emitted so far, in sequence order.
func (d *Driver) Facts() []round.Fact {
	return d.facts
}

// Deliver applies one event at the current simulated time. Events delivered
// after completion are ignored, mirroring the actor's closed queue.
func (d *Driver) Deliver(ev round.Event) {
	if d.done {
		return
	}
	d.apply(d.machine.Handle(ev, d.now))
}

// Advance moves the simulated clock forward, firing due timers in deadline
// order along the way. Each fire is delivered at its own deadline, so a
// machine that schedules a follow-up timer inside a timer transition sees
// consistent time.
func (d *Driver) Advance(delta time.Duration) {
	target := d.now.Add(delta)
	for {
		idx := d.nextDueTimer(target)
		if idx < 0 {
			break
		}
		tm := d.timers[idx]
		d.timers = append(d.timers[:idx], d.timers[idx+1:]...)
		d.now = tm.due
		if d.done {
			continue
		}
		d.apply(d.machine.Handle(round.TimerEvent(tm.name), d.now))
	}
	d.now = target
}

// nextDueTimer returns the index of the earliest timer due at or before
// target, or -1 if none.
func (d *Driver) nextDueTimer(target time.Time) int {
	best := -1
	for i, tm := range d.timers {
		if tm.due.After(target) {
			continue
		}
		if best == -1 || tm.due.Before(d.timers[best].due) ||
			(tm.due.Equal(d.timers[best].due) && tm.id < d.timers[best].id) {
			best = i
		}
	}
	return best
}

func (d *Driver) apply(t Transition) {
	for _, name := range t.Cancel {
		d.cancelTimer(name)
	}
	for _, req := range t.Schedule {
		d.cancelTimer(req.Name)
		d.nextID++
		d.timers = append(d.timers, pendingTimer{
			name: req.Name,
			due:  d.now.Add(req.After),
			id:   d.nextID,
		})
	}

	for _, fact := range t.Facts {
		fact.Seq = d.clock.Next()
		fact.Timestamp = d.now
		d.facts = append(d.facts, fact)
	}

	if t.Done {
		d.done = true
		d.output = t.Output
		d.timers = nil
	}
}

func (d *Driver) cancelTimer(name string) {
	kept := d.timers[:0]
	for _, tm := range d.timers {
		if tm.name != name {
			kept = append(kept, tm)
		}
	}
	d.timers = kept
}

// PendingTimers returns the names of armed timers sorted by deadline.
// Intended for tests asserting on scheduled phase transitions.
func (d *Driver) PendingTimers() []string {
	timers := make([]pendingTimer, len(d.timers))
	copy(timers, d.timers)
	sort.Slice(timers, func(i, j int) bool {
		if !timers[i].due.Equal(timers[j].due) {
			return timers[i].due.Before(timers[j].due)
		}
		return timers[i].id < timers[j].id
	})
	names := make([]string, len(timers))
	for i, tm := range timers {
		names[i] = tm.name
	}
	return names
}
