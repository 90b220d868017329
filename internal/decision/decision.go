// Package decision implements the synchronous "everyone decides, then
// reveal" lifecycle engine. A single-round game collects one decision per
// eligible player and reveals once; a multi-round (tournament) game cycles
// collecting → round_revealed until its round count is exhausted, folding
// the per-round results into a final outcome.
//
// The engine owns progression and bookkeeping only. What a decision means,
// who wins, and every tie-break or edge-case rule live in the supplied
// policies.
package decision

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// revealHoldTimer names the single engine-internal timer: the pause on a
// revealed round before the next round opens.
const revealHoldTimer = "reveal_hold"

// DefaultRevealHold is the pause between a round reveal and the next
// round's collecting phase when the config does not specify one.
const DefaultRevealHold = 5 * time.Second

// Context is the read-only information handed to policies and eligibility
// rules alongside the collected decisions.
type Context struct {
	GameID string
	Day    int
	Roster round.Roster

	// Round is the 1-based current round. Always 1 in single-round mode.
	Round int

	// Setup carries per-round setup data produced by the config's
	// SetupRound hook, e.g. the current pairing. Nil when the hook is
	// unset.
	Setup map[string]any
}

// Verdict is what a batch policy produces for one evaluation: per-player
// deltas, a pool contribution, an optional flag winner and free-form
// summary data. Policies never clamp; the engine clamps final deltas
// against the roster snapshot.
type Verdict struct {
	SilverDelta      map[round.PlayerID]int64
	PoolContribution int64
	FlagWinner       round.PlayerID
	Summary          map[string]any
}

// RoundPolicy evaluates one round's collected decisions.
type RoundPolicy interface {
	Evaluate(decisions map[round.PlayerID]json.RawMessage, ctx Context) Verdict
}

// RoundPolicyFunc adapts a function to RoundPolicy.
type RoundPolicyFunc func(decisions map[round.PlayerID]json.RawMessage, ctx Context) Verdict

// Evaluate implements RoundPolicy.
func (f RoundPolicyFunc) Evaluate(decisions map[round.PlayerID]json.RawMessage, ctx Context) Verdict {
	return f(decisions, ctx)
}

// FinalPolicy folds the ordered round results into the final verdict. The
// engine guarantees results arrive in round order.
type FinalPolicy interface {
	Aggregate(results []round.RoundResult, ctx Context) Verdict
}

// FinalPolicyFunc adapts a function to FinalPolicy.
type FinalPolicyFunc func(results []round.RoundResult, ctx Context) Verdict

// Aggregate implements FinalPolicy.
func (f FinalPolicyFunc) Aggregate(results []round.RoundResult, ctx Context) Verdict {
	return f(results, ctx)
}

// Validator is an optional game-specific predicate over a submitted
// payload, e.g. "bid amount must not exceed the player's balance". A false
// return drops the submission silently; the player remains not-submitted.
type Validator func(id round.PlayerID, payload json.RawMessage, ctx Context) bool

// Config parameterizes one synchronous decision cartridge.
type Config struct {
	GameID string

	// Rounds is the number of rounds to play. 0 and 1 both mean
	// single-round mode.
	Rounds int

	// Round evaluates each round's decisions. Required.
	Round RoundPolicy

	// Final folds round results into the final outcome. Multi-round mode
	// only; defaults to SumFold.
	Final FinalPolicy

	// Validate optionally rejects individual submissions.
	Validate Validator

	// EligibleForRound overrides the per-round eligible subset, e.g. "only
	// this round's two paired players". Defaults to the global eligible
	// set every round.
	EligibleForRound func(roundNum int, roster round.Roster) []round.PlayerID

	// SetupRound produces per-round setup data exposed to policies and
	// included in the round.started fact, e.g. the current pairing.
	SetupRound func(roundNum int) map[string]any

	// RevealHold is how long a revealed round holds before the next round
	// opens. Multi-round mode only; defaults to DefaultRevealHold.
	RevealHold time.Duration
}

type phase string

const (
	phaseCollecting    phase = "collecting"
	phaseRoundRevealed phase = "round_revealed"
	phaseCompleted     phase = "completed"
)

type decisionRecord struct {
	submitted bool
	payload   json.RawMessage
}

type state struct {
	phase     phase
	roundNum  int
	eligible  []round.PlayerID
	decisions map[round.PlayerID]decisionRecord
	results   []round.RoundResult
}

// Machine is the synchronous decision state machine. It implements
// engine.Machine; every transition replaces the state value wholesale.
type Machine struct {
	cfg    Config
	roster round.Roster
	day    int
	state  state
}

var (
	// ErrNilRoundPolicy is returned when no round policy is supplied.
	ErrNilRoundPolicy = errors.New("decision: nil round policy")
	// ErrNoEligiblePlayers is returned when the roster yields an empty
	// eligible set.
	ErrNoEligiblePlayers = errors.New("decision: no eligible players")
)

// New constructs a decision machine over a roster snapshot.
func New(cfg Config, roster round.Roster, day int) (*Machine, error) {
	if cfg.Round == nil {
		return nil, ErrNilRoundPolicy
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}
	if cfg.Final == nil {
		cfg.Final = SumFold{}
	}
	if cfg.RevealHold <= 0 {
		cfg.RevealHold = DefaultRevealHold
	}
	if len(roster.Eligible()) == 0 {
		return nil, ErrNoEligiblePlayers
	}

	return &Machine{cfg: cfg, roster: roster, day: day}, nil
}

// Phase returns the current lifecycle phase.
func (m *Machine) Phase() string {
	return string(m.state.phase)
}

// Round returns the 1-based current round number.
func (m *Machine) Round() int {
	return m.state.roundNum
}

// Results returns the revealed round results so far, in round order.
func (m *Machine) Results() []round.RoundResult {
	return m.state.results
}

// HasSubmitted reports whether the player submitted in the current round.
func (m *Machine) HasSubmitted(id round.PlayerID) bool {
	return m.state.decisions[id].submitted
}

// Begin opens round 1. The collecting phase has no timer of its own:
// rounds are unblocked by full submission or by the orchestrator's force
// end, never by an internal deadline.
func (m *Machine) Begin(now time.Time) engine.Transition {
	var t engine.Transition
	m.openRound(&t, 1)
	return t
}

// Handle applies one event. Late, duplicate, unknown-player and
// validation-failed submissions are silent no-ops.
func (m *Machine) Handle(ev round.Event, now time.Time) engine.Transition {
	var t engine.Transition
	if m.state.phase == phaseCompleted {
		return t
	}

	switch ev.Kind {
	case round.EventSubmitDecision:
		m.handleSubmit(&t, ev)
	case round.EventTimer:
		if ev.Timer == revealHoldTimer && m.state.phase == phaseRoundRevealed {
			m.advanceRound(&t)
		}
	case round.EventForceEnd:
		m.forceEnd(&t)
	}
	return t
}

func (m *Machine) handleSubmit(t *engine.Transition, ev round.Event) {
	if m.state.phase != phaseCollecting {
		return
	}
	if !m.isEligibleThisRound(ev.Player) {
		return
	}
	if m.state.decisions[ev.Player].submitted {
		// At most one decision per player per round: the first submission
		// is immutable.
		return
	}
	if m.cfg.Validate != nil && !m.cfg.Validate(ev.Player, ev.Payload, m.policyContext()) {
		return
	}

	next := m.cloneState()
	next.decisions[ev.Player] = decisionRecord{submitted: true, payload: ev.Payload}
	m.state = next

	t.Emit(round.FactDecisionRecorded, ev.Player, map[string]any{
		"round": int64(m.state.roundNum),
	})

	if m.allSubmitted() {
		m.reveal(t)
	}
}

func (m *Machine) isEligibleThisRound(id round.PlayerID) bool {
	for _, e := range m.state.eligible {
		if e == id {
			return true
		}
	}
	return false
}

func (m *Machine) allSubmitted() bool {
	for _, id := range m.state.eligible {
		if !m.state.decisions[id].submitted {
			return false
		}
	}
	return true
}

// reveal evaluates the round policy over the collected decisions and either
// finalizes (last or only round) or holds in round_revealed until the
// reveal timer advances play.
func (m *Machine) reveal(t *engine.Transition) {
	verdict := m.cfg.Round.Evaluate(m.collectedDecisions(), m.policyContext())

	next := m.cloneState()
	next.results = append(next.results, round.RoundResult{
		Round:            m.state.roundNum,
		SilverDelta:      verdict.SilverDelta,
		PoolContribution: verdict.PoolContribution,
		Summary:          verdict.Summary,
	})

	t.Emit(round.FactRoundRevealed, "", map[string]any{
		"round": int64(m.state.roundNum),
		"pool":  verdict.PoolContribution,
	})

	if m.state.roundNum >= m.cfg.Rounds {
		m.state = next
		if m.cfg.Rounds == 1 {
			m.finalizeSingle(t, verdict)
		} else {
			m.finalizeMulti(t)
		}
		return
	}

	next.phase = phaseRoundRevealed
	m.state = next
	t.Schedule = append(t.Schedule, engine.TimerRequest{
		Name:  revealHoldTimer,
		After: m.cfg.RevealHold,
	})
}

// advanceRound opens the next round after the reveal hold expires.
func (m *Machine) advanceRound(t *engine.Transition) {
	m.openRound(t, m.state.roundNum+1)
}

// openRound selects the round's eligible subset, resets submission flags
// and emits the round.started fact.
func (m *Machine) openRound(t *engine.Transition, num int) {
	eligible := m.roster.Eligible()
	if m.cfg.EligibleForRound != nil {
		eligible = m.cfg.EligibleForRound(num, m.roster)
	}

	next := m.cloneState()
	next.phase = phaseCollecting
	next.roundNum = num
	next.eligible = eligible
	next.decisions = make(map[round.PlayerID]decisionRecord, len(eligible))
	m.state = next

	payload := map[string]any{
		"game":    m.cfg.GameID,
		"round":   int64(num),
		"players": int64(len(eligible)),
	}
	if m.cfg.SetupRound != nil {
		for k, v := range m.cfg.SetupRound(num) {
			payload[k] = v
		}
	}
	t.Emit(round.FactRoundStarted, "", payload)
}

// forceEnd drives the engine to completion from any non-terminal phase.
// The current round's partial decisions are discarded (a round either
// reveals complete or not at all) and the accumulated results fold into a
// well-formed outcome with a delta entry for every eligible player, even
// with zero participation.
func (m *Machine) forceEnd(t *engine.Transition) {
	if m.cfg.Rounds == 1 {
		verdict := m.cfg.Round.Evaluate(m.collectedDecisions(), m.policyContext())
		t.Emit(round.FactRoundRevealed, "", map[string]any{
			"round":  int64(m.state.roundNum),
			"pool":   verdict.PoolContribution,
			"forced": true,
		})
		m.finalizeSingle(t, verdict)
		return
	}
	m.finalizeMulti(t)
}

// finalizeSingle turns the lone round's verdict into the final outcome.
func (m *Machine) finalizeSingle(t *engine.Transition, verdict Verdict) {
	m.complete(t, verdict)
}

// finalizeMulti folds the accumulated round results through the final
// aggregation policy.
func (m *Machine) finalizeMulti(t *engine.Transition) {
	verdict := m.cfg.Final.Aggregate(m.state.results, m.policyContext())
	m.complete(t, verdict)
}

func (m *Machine) complete(t *engine.Transition, verdict Verdict) {
	// Every eligible player gets a delta entry, zero if the policy had
	// nothing to say about them.
	deltas := make(map[round.PlayerID]int64)
	for _, id := range m.roster.Eligible() {
		deltas[id] = 0
	}
	for id, d := range verdict.SilverDelta {
		deltas[id] = d
	}

	next := m.cloneState()
	next.phase = phaseCompleted
	m.state = next

	output := &round.Outcome{
		GameID:           m.cfg.GameID,
		SilverDelta:      round.ClampSilver(deltas, m.roster),
		PoolContribution: verdict.PoolContribution,
		FlagWinner:       verdict.FlagWinner,
		Summary:          verdict.Summary,
	}

	t.Emit(round.FactGameCompleted, "", map[string]any{
		"game":   m.cfg.GameID,
		"rounds": int64(len(m.state.results)),
		"pool":   verdict.PoolContribution,
	})
	t.Cancel = append(t.Cancel, revealHoldTimer)
	t.Done = true
	t.Output = output
}

// collectedDecisions snapshots the submitted payloads for policy
// evaluation.
func (m *Machine) collectedDecisions() map[round.PlayerID]json.RawMessage {
	out := make(map[round.PlayerID]json.RawMessage)
	for id, rec := range m.state.decisions {
		if rec.submitted {
			out[id] = rec.payload
		}
	}
	return out
}

func (m *Machine) policyContext() Context {
	var setup map[string]any
	if m.cfg.SetupRound != nil {
		setup = m.cfg.SetupRound(m.state.roundNum)
	}
	return Context{
		GameID: m.cfg.GameID,
		Day:    m.day,
		Roster: m.roster,
		Round:  m.state.roundNum,
		Setup:  setup,
	}
}

// cloneState copies the state value including its maps, preserving the
// replace-wholesale transition discipline.
func (m *Machine) cloneState() state {
	next := m.state
	next.decisions = make(map[round.PlayerID]decisionRecord, len(m.state.decisions))
	for id, rec := range m.state.decisions {
		next.decisions[id] = rec
	}
	next.results = make([]round.RoundResult, len(m.state.results))
	copy(next.results, m.state.results)
	return next
}

// SumFold is the default final aggregation: deltas and pool contributions
// sum across rounds; no flag winner.
type SumFold struct{}

// Aggregate implements FinalPolicy.
func (SumFold) Aggregate(results []round.RoundResult, ctx Context) Verdict {
	deltas := map[round.PlayerID]int64{}
	var pool int64
	for _, r := range results {
		deltas = round.MergeDeltas(deltas, r.SilverDelta)
		pool += r.PoolContribution
	}
	return Verdict{
		SilverDelta:      deltas,
		PoolContribution: pool,
		Summary:          map[string]any{"rounds": int64(len(results))},
	}
}
