// Package arcade implements the asynchronous per-player lifecycle engine
// for skill minigames. The client owns the play loop; the engine only
// tracks each player's NOT_STARTED → PLAYING → COMPLETED progression with
// server-authoritative timing, applies the supplied reward policy, and
// completes once every eligible player is done or the orchestrator force
// ends the round.
package arcade

import (
	"errors"
	"sort"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// Policy computes a single player's reward from their raw result payload
// and server-side elapsed time. Policies are pure and must not clamp
// anything; the engine clamps final deltas against the roster snapshot.
type Policy interface {
	Reward(result map[string]int64, elapsed, limit time.Duration) (silver int64, pool int64)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(result map[string]int64, elapsed, limit time.Duration) (int64, int64)

// Reward implements Policy.
func (f PolicyFunc) Reward(result map[string]int64, elapsed, limit time.Duration) (int64, int64) {
	return f(result, elapsed, limit)
}

// Config parameterizes one arcade cartridge.
type Config struct {
	GameID    string
	TimeLimit time.Duration
	Policy    Policy

	// Eligible overrides the eligible-player rule. Defaults to all alive
	// roster members.
	Eligible func(round.Roster) []round.PlayerID
}

// Status is a player's progression through their own run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusPlaying    Status = "playing"
	StatusCompleted  Status = "completed"
)

type participant struct {
	status    Status
	startedAt time.Time
	result    map[string]int64
	silver    int64
}

type phase string

const (
	phaseActive    phase = "active"
	phaseCompleted phase = "completed"
)

type state struct {
	phase        phase
	participants map[round.PlayerID]participant
	pool         int64
}

// Machine is the arcade lifecycle state machine. It implements
// engine.Machine; all mutation happens by replacing the state value
// wholesale inside a transition.
type Machine struct {
	cfg    Config
	roster round.Roster
	day    int
	state  state
}

var (
	// ErrNilPolicy is returned when no reward policy is supplied.
	ErrNilPolicy = errors.New("arcade: nil reward policy")
	// ErrNoEligiblePlayers is returned when the roster yields an empty
	// eligible set. A cartridge with nobody to play it is a configuration
	// error upstream, not a runnable round.
	ErrNoEligiblePlayers = errors.New("arcade: no eligible players")
)

// New constructs an arcade machine over a roster snapshot. The snapshot is
// read-only; day seeds nothing here but is carried into the summary for
// parity with the synchronous engine.
func New(cfg Config, roster round.Roster, day int) (*Machine, error) {
	if cfg.Policy == nil {
		return nil, ErrNilPolicy
	}
	eligible := cfg.Eligible
	if eligible == nil {
		eligible = round.Roster.Eligible
	}
	ids := eligible(roster)
	if len(ids) == 0 {
		return nil, ErrNoEligiblePlayers
	}

	participants := make(map[round.PlayerID]participant, len(ids))
	for _, id := range ids {
		participants[id] = participant{status: StatusNotStarted}
	}

	return &Machine{
		cfg:    cfg,
		roster: roster,
		day:    day,
		state: state{
			phase:        phaseActive,
			participants: participants,
		},
	}, nil
}

// Phase returns the current lifecycle phase.
func (m *Machine) Phase() string {
	return string(m.state.phase)
}

// PlayerStatus returns a player's sub-state, or StatusNotStarted for
// unknown players.
func (m *Machine) PlayerStatus(id round.PlayerID) Status {
	p, ok := m.state.participants[id]
	if !ok {
		return StatusNotStarted
	}
	return p.status
}

// Begin enters the active phase. Arcade rounds have no engine-internal
// timer: the orchestrator's scheduler force-ends on the global timeout.
func (m *Machine) Begin(now time.Time) engine.Transition {
	var t engine.Transition
	t.Emit(round.FactRoundStarted, "", map[string]any{
		"game":    m.cfg.GameID,
		"players": int64(len(m.state.participants)),
	})
	return t
}

// Handle applies one event. Anything malformed, out of phase or out of
// order is silently dropped.
func (m *Machine) Handle(ev round.Event, now time.Time) engine.Transition {
	var t engine.Transition
	if m.state.phase != phaseActive {
		return t
	}

	switch ev.Kind {
	case round.EventStart:
		m.handleStart(&t, ev.Player, now)
	case round.EventSubmitResult:
		m.handleResult(&t, ev, now)
	case round.EventForceEnd:
		m.complete(&t, now)
	}
	return t
}

// handleStart transitions a player to PLAYING and records the server-side
// start timestamp. The client-reported clock is never trusted. Repeated or
// out-of-order starts are no-ops.
func (m *Machine) handleStart(t *engine.Transition, id round.PlayerID, now time.Time) {
	p, ok := m.state.participants[id]
	if !ok || p.status != StatusNotStarted {
		return
	}

	next := m.cloneState()
	next.participants[id] = participant{status: StatusPlaying, startedAt: now}
	m.state = next

	t.Emit(round.FactPlayerStarted, id, nil)
}

func (m *Machine) handleResult(t *engine.Transition, ev round.Event, now time.Time) {
	p, ok := m.state.participants[ev.Player]
	if !ok || p.status != StatusPlaying {
		return
	}

	elapsed := now.Sub(p.startedAt)
	if elapsed < 0 {
		// A negative elapsed time means the clock inputs are inconsistent;
		// drop the result rather than reward it.
		return
	}
	if elapsed > m.cfg.TimeLimit {
		elapsed = m.cfg.TimeLimit
	}

	result := round.DecodeNumbers(ev.Payload)
	silver, pool := m.cfg.Policy.Reward(result, elapsed, m.cfg.TimeLimit)

	next := m.cloneState()
	next.participants[ev.Player] = participant{
		status:    StatusCompleted,
		startedAt: p.startedAt,
		result:    result,
		silver:    silver,
	}
	next.pool += pool
	m.state = next

	// Emit the reward immediately so the orchestrator can apply it without
	// waiting for the whole round.
	t.Emit(round.FactPlayerCompleted, ev.Player, map[string]any{
		"silver":     silver,
		"pool":       pool,
		"elapsed_ms": elapsed.Milliseconds(),
	})

	if m.allCompleted() {
		m.complete(t, now)
	}
}

func (m *Machine) allCompleted() bool {
	for _, p := range m.state.participants {
		if p.status != StatusCompleted {
			return false
		}
	}
	return true
}

// complete backfills a reward for every player not yet COMPLETED, using
// their last-known partial result or nothing at all, so total-reward
// accounting is independent of who finished. Then it emits the full-round
// fact and produces the final output.
func (m *Machine) complete(t *engine.Transition, now time.Time) {
	next := m.cloneState()
	next.phase = phaseCompleted

	for _, id := range m.eligibleOrder() {
		p := next.participants[id]
		if p.status == StatusCompleted {
			continue
		}

		elapsed := time.Duration(0)
		if p.status == StatusPlaying {
			elapsed = now.Sub(p.startedAt)
			if elapsed < 0 {
				elapsed = 0
			}
			if elapsed > m.cfg.TimeLimit {
				elapsed = m.cfg.TimeLimit
			}
		}
		result := p.result
		if result == nil {
			result = map[string]int64{}
		}
		silver, pool := m.cfg.Policy.Reward(result, elapsed, m.cfg.TimeLimit)

		next.participants[id] = participant{
			status:    StatusCompleted,
			startedAt: p.startedAt,
			result:    result,
			silver:    silver,
		}
		next.pool += pool

		t.Emit(round.FactPlayerCompleted, id, map[string]any{
			"silver":     silver,
			"pool":       pool,
			"elapsed_ms": elapsed.Milliseconds(),
			"backfilled": true,
		})
	}

	m.state = next

	deltas := make(map[round.PlayerID]int64, len(next.participants))
	completed := int64(0)
	for id, p := range next.participants {
		deltas[id] = p.silver
		completed++
	}

	output := &round.Outcome{
		GameID:           m.cfg.GameID,
		SilverDelta:      round.ClampSilver(deltas, m.roster),
		PoolContribution: next.pool,
		Summary: map[string]any{
			"day":     m.day,
			"players": completed,
		},
	}

	t.Emit(round.FactGameCompleted, "", map[string]any{
		"game": m.cfg.GameID,
		"pool": next.pool,
	})
	t.Done = true
	t.Output = output
}

// eligibleOrder returns participant IDs in deterministic order for
// backfill fact emission.
func (m *Machine) eligibleOrder() []round.PlayerID {
	ids := make([]round.PlayerID, 0, len(m.state.participants))
	for id := range m.state.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// cloneState copies the state value including its participants map, so a
// transition replaces the context wholesale instead of mutating shared
// structure in place.
func (m *Machine) cloneState() state {
	next := m.state
	next.participants = make(map[round.PlayerID]participant, len(m.state.participants))
	for id, p := range m.state.participants {
		next.participants[id] = p
	}
	return next
}
