package engine

import (
	"time"

	"github.com/partyround/cartridge/internal/round"
)

// TimerRequest asks the actor to deliver a timer event after a delay. Name
// identifies the schedule; the fired event is round.TimerEvent(Name).
// Scheduling a name that is already pending replaces the earlier timer.
type TimerRequest struct {
	Name  string
	After time.Duration
}

// Transition is the full result of handling one event: the facts to emit,
// the timers to schedule or cancel, and whether the machine reached its
// terminal phase. Machines return transitions instead of performing side
// effects, which keeps their logic pure and testable without the actor.
type Transition struct {
	Facts []round.Fact

	// Schedule lists timers to arm after this transition is applied.
	Schedule []TimerRequest

	// Cancel lists pending timer names to disarm. Cancelling is an
	// optimization, not a correctness requirement: a stale timer that
	// fires anyway is ignored by the machine's phase checks.
	Cancel []string

	// Done is true once the machine entered its terminal phase. Output is
	// set on exactly that transition and never again.
	Done   bool
	Output *round.Outcome
}

// Emit appends a fact to the transition.
func (t *Transition) Emit(kind round.FactKind, actor round.PlayerID, payload map[string]any) {
	t.Facts = append(t.Facts, round.NewFact(kind, actor, payload))
}

// Machine is one cartridge lifecycle state machine. Implementations must
// treat every call as an atomic transition: read the old context, compute
// the new context, replace it wholesale. The actor guarantees calls are
// sequential.
type Machine interface {
	// Begin enters the first phase. Called exactly once, before any event.
	Begin(now time.Time) Transition

	// Handle applies one event. Malformed or unauthorized events return an
	// empty transition: no state change, no facts. Handle is never called
	// after a transition with Done set.
	Handle(ev round.Event, now time.Time) Transition
}
