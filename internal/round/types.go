package round

import "sort"

// PlayerID identifies a roster member.
type PlayerID string

// PlayerState is the orchestrator's view of a single player at the moment
// the cartridge was constructed. Engines read it for eligibility checks and
// for clamping rewards; they never write it back.
type PlayerState struct {
	Alive  bool
	Silver int64
	Gold   int64
}

// Roster is a read-only snapshot of the full player set, keyed by player ID.
// It is owned by the orchestrator. Engines must treat it as immutable.
type Roster map[PlayerID]PlayerState

// Eligible returns the alive players in deterministic (sorted) order.
// Sorted order matters: pairing schedules and fact emission order are
// derived from it, and both must be reproducible across runs.
func (r Roster) Eligible() []PlayerID {
	ids := make([]PlayerID, 0, len(r))
	for id, p := range r {
		if p.Alive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Contains reports whether id is an alive roster member.
func (r Roster) Contains(id PlayerID) bool {
	p, ok := r[id]
	return ok && p.Alive
}

// Silver returns the player's silver balance, or 0 for unknown players.
func (r Roster) Silver(id PlayerID) int64 {
	return r[id].Silver
}

// Outcome is the final output of a cartridge, returned exactly once when
// the engine enters its terminal phase.
type Outcome struct {
	GameID string `json:"game_id"`

	// SilverDelta holds one entry per eligible player. Deltas are already
	// clamped against the roster snapshot: delta + balance >= 0.
	SilverDelta map[PlayerID]int64 `json:"silver_delta"`

	// PoolContribution is the amount added to the shared gold vault.
	PoolContribution int64 `json:"pool_contribution"`

	// FlagWinner is set when the game awards a flag or shield to a single
	// player; empty otherwise.
	FlagWinner PlayerID `json:"flag_winner,omitempty"`

	// Summary carries free-form display data. Engines pass it through from
	// the supplied policy without interpretation.
	Summary map[string]any `json:"summary,omitempty"`
}

// RoundResult records the outcome of one revealed round in a multi-round
// game. Results are appended in round order and never mutated; the final
// Outcome is a fold over the list.
type RoundResult struct {
	Round            int                `json:"round"`
	SilverDelta      map[PlayerID]int64 `json:"silver_delta"`
	PoolContribution int64              `json:"pool_contribution"`
	Summary          map[string]any     `json:"summary,omitempty"`
}
