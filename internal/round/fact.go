package round

import "time"

// FactKind identifies an observable state change.
type FactKind string

const (
	FactRoundStarted     FactKind = "round.started"
	FactDecisionRecorded FactKind = "decision.recorded"
	FactPlayerStarted    FactKind = "player.started"
	FactPlayerCompleted  FactKind = "player.completed"
	FactRoundRevealed    FactKind = "round.revealed"
	FactGameCompleted    FactKind = "game.completed"

	FactPlayerReady      FactKind = "player.ready"
	FactCountdownStarted FactKind = "countdown.started"
	FactPlayerEngaged    FactKind = "player.engaged"
	FactPlayerEliminated FactKind = "player.eliminated"
	FactQuestionAsked    FactKind = "question.asked"
	FactGameAborted      FactKind = "game.aborted"
)

// Fact is an immutable record of an observable state change, emitted
// outward for the orchestrator to synchronize client views. Engines build
// facts with NewFact; the actor runtime stamps Seq and Timestamp before
// forwarding them, so transition logic stays pure.
type Fact struct {
	Kind    FactKind       `json:"kind"`
	ActorID PlayerID       `json:"actor_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`

	// Seq is a monotonic per-engine sequence number. Assigned by the actor
	// runtime's logical clock; zero until stamped.
	Seq int64 `json:"seq"`

	// Timestamp is the server-authoritative emission time. Assigned by the
	// actor runtime; zero until stamped.
	Timestamp time.Time `json:"timestamp"`
}

// NewFact builds an unstamped fact.
func NewFact(kind FactKind, actor PlayerID, payload map[string]any) Fact {
	return Fact{Kind: kind, ActorID: actor, Payload: payload}
}
