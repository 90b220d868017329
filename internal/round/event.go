package round

import (
	"encoding/json"
	"fmt"
)

// EventKind distinguishes the members of the closed event union.
type EventKind string

const (
	// EventStart begins a player's arcade run.
	EventStart EventKind = "start"
	// EventSubmitResult reports a player's final arcade result payload.
	EventSubmitResult EventKind = "submit_result"
	// EventSubmitDecision records a player's decision for the current
	// synchronous round.
	EventSubmitDecision EventKind = "submit_decision"
	// EventReady marks a player ready during a ready-up phase.
	EventReady EventKind = "ready"
	// EventTouch marks a player as engaged (holdout variant).
	EventTouch EventKind = "touch"
	// EventRelease marks a player as disengaged (holdout variant).
	EventRelease EventKind = "release"
	// EventForceEnd is the orchestrator's signal to drive the engine to
	// completion regardless of phase. Accepted in every non-terminal phase.
	EventForceEnd EventKind = "force_end"
	// EventTimer is raised internally when a scheduled timer fires. It
	// never arrives from outside the engine.
	EventTimer EventKind = "timer"
)

// Event is the tagged union delivered to a lifecycle engine. Player events
// carry the acting player's ID and an opaque JSON payload; timer events
// carry the name of the timer that fired. Unknown kinds are rejected at the
// boundary by ParseEventKind, not inside handlers.
type Event struct {
	Kind    EventKind
	Player  PlayerID
	Payload json.RawMessage

	// Timer is the schedule name for EventTimer events, e.g. "reveal_hold".
	Timer string
}

// TimerEvent builds an internal timer event for the named schedule.
func TimerEvent(name string) Event {
	return Event{Kind: EventTimer, Timer: name}
}

// externalKinds lists the event kinds accepted from outside the engine.
var externalKinds = map[EventKind]bool{
	EventStart:          true,
	EventSubmitResult:   true,
	EventSubmitDecision: true,
	EventReady:          true,
	EventTouch:          true,
	EventRelease:        true,
	EventForceEnd:       true,
}

// ParseEventKind validates an external event kind string. Timer events are
// engine-internal and are rejected here.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !externalKinds[k] {
		return "", fmt.Errorf("unknown event kind %q", s)
	}
	return k, nil
}

// DecodeNumbers decodes a result payload into a map of non-negative
// integers. Every numeric field is floored and clamped to >= 0 before it is
// stored, so malformed or hostile client payloads cannot inject negative
// scores. Non-object payloads and non-numeric fields decode to an empty map
// entry-by-entry rather than failing the whole event.
func DecodeNumbers(payload json.RawMessage) map[string]int64 {
	out := map[string]int64{}
	if len(payload) == 0 {
		return out
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return out
	}
	for key, val := range raw {
		f, ok := val.(float64)
		if !ok {
			continue
		}
		v := int64(f)
		if v < 0 {
			v = 0
		}
		out[key] = v
	}
	return out
}
