package games

import (
	"errors"
	"sort"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// HoldoutMode selects the holdout completion rule at construction.
type HoldoutMode string

const (
	// HoldoutSolo runs against the clock only: whoever is still engaged
	// when the max-duration timer fires wins.
	HoldoutSolo HoldoutMode = "solo"
	// HoldoutLive is elimination by attrition: the round ends as soon as
	// at most Threshold players remain engaged.
	HoldoutLive HoldoutMode = "live"
)

// Timer names for the holdout phases.
const (
	holdoutReadyTimer     = "ready_timeout"
	holdoutCountdownTimer = "countdown"
	holdoutMaxTimer       = "max_duration"
)

// HoldoutConfig parameterizes the live "last one holding wins" cartridge.
type HoldoutConfig struct {
	Mode HoldoutMode

	// ReadyTimeout bounds the ready-up phase. When it fires with nobody
	// ready the game aborts; otherwise play proceeds with whoever is
	// ready.
	ReadyTimeout time.Duration

	// Countdown is the fixed pause between ready-up and the active phase.
	Countdown time.Duration

	// MaxDuration bounds the active phase in both modes.
	MaxDuration time.Duration

	// Threshold is the engaged-player count at which a live round ends.
	// Defaults to 1. Ignored in solo mode.
	Threshold int

	// Prize is the silver awarded to each player still engaged at the end.
	Prize int64

	// Stake is the silver every released player forfeits to the shared
	// pool. Their delta is clamped against the roster snapshot like any
	// other.
	Stake int64
}

type holdoutPhase string

const (
	holdoutReady     holdoutPhase = "ready"
	holdoutCountdown holdoutPhase = "countdown"
	holdoutActive    holdoutPhase = "active"
	holdoutCompleted holdoutPhase = "completed"
)

type holdoutState struct {
	phase      holdoutPhase
	ready      map[round.PlayerID]bool
	engaged    map[round.PlayerID]bool
	eliminated []round.PlayerID
}

// Holdout is the hand-built attrition machine. It follows the same
// discipline as the generic engines: every handler replaces the state
// value wholesale, out-of-phase events are silent no-ops, and the terminal
// transition computes rewards exactly once.
type Holdout struct {
	cfg    HoldoutConfig
	roster round.Roster
	day    int
	state  holdoutState
}

// ErrUnknownHoldoutMode rejects construction with a mode outside
// solo/live.
var ErrUnknownHoldoutMode = errors.New("games: unknown holdout mode")

// NewHoldout constructs a holdout machine over a roster snapshot.
func NewHoldout(cfg HoldoutConfig, roster round.Roster, day int) (*Holdout, error) {
	switch cfg.Mode {
	case HoldoutSolo, HoldoutLive:
	default:
		return nil, ErrUnknownHoldoutMode
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	if len(roster.Eligible()) == 0 {
		return nil, errors.New("games: holdout needs eligible players")
	}

	return &Holdout{
		cfg:    cfg,
		roster: roster,
		day:    day,
		state: holdoutState{
			phase:   holdoutReady,
			ready:   map[round.PlayerID]bool{},
			engaged: map[round.PlayerID]bool{},
		},
	}, nil
}

// Phase returns the current lifecycle phase.
func (h *Holdout) Phase() string {
	return string(h.state.phase)
}

// Engaged reports whether the player is currently engaged.
func (h *Holdout) Engaged(id round.PlayerID) bool {
	return h.state.engaged[id]
}

// Begin opens the ready-up phase.
func (h *Holdout) Begin(now time.Time) engine.Transition {
	var t engine.Transition
	t.Emit(round.FactRoundStarted, "", map[string]any{
		"game":    "holdout",
		"mode":    string(h.cfg.Mode),
		"players": int64(len(h.roster.Eligible())),
	})
	t.Schedule = append(t.Schedule, engine.TimerRequest{
		Name:  holdoutReadyTimer,
		After: h.cfg.ReadyTimeout,
	})
	return t
}

// Handle applies one event.
func (h *Holdout) Handle(ev round.Event, now time.Time) engine.Transition {
	var t engine.Transition
	if h.state.phase == holdoutCompleted {
		return t
	}

	switch ev.Kind {
	case round.EventReady, round.EventTouch:
		// The client's hold-button press arrives as Touch; during ready-up
		// it counts as readying. During active play Touch is a heartbeat
		// no-op and Ready is out of phase.
		if h.state.phase == holdoutReady {
			h.handleReady(&t, ev.Player)
		}
	case round.EventRelease:
		if h.state.phase == holdoutActive {
			h.handleRelease(&t, ev.Player)
		}
	case round.EventTimer:
		h.handleTimer(&t, ev.Timer)
	case round.EventForceEnd:
		h.complete(&t, false)
	}
	return t
}

func (h *Holdout) handleReady(t *engine.Transition, id round.PlayerID) {
	if !h.roster.Contains(id) || h.state.ready[id] {
		return
	}

	next := h.cloneState()
	next.ready[id] = true
	h.state = next

	t.Emit(round.FactPlayerReady, id, nil)

	if len(h.state.ready) == len(h.roster.Eligible()) {
		h.startCountdown(t)
	}
}

func (h *Holdout) handleRelease(t *engine.Transition, id round.PlayerID) {
	if !h.state.engaged[id] {
		return
	}

	next := h.cloneState()
	delete(next.engaged, id)
	next.eliminated = append(next.eliminated, id)
	h.state = next

	t.Emit(round.FactPlayerEliminated, id, map[string]any{
		"place":     int64(len(h.state.engaged) + 1),
		"remaining": int64(len(h.state.engaged)),
	})

	if h.cfg.Mode == HoldoutLive && len(h.state.engaged) <= h.cfg.Threshold {
		h.complete(t, false)
	}
}

func (h *Holdout) handleTimer(t *engine.Transition, name string) {
	switch {
	case name == holdoutReadyTimer && h.state.phase == holdoutReady:
		if len(h.state.ready) == 0 {
			h.abort(t)
			return
		}
		h.startCountdown(t)

	case name == holdoutCountdownTimer && h.state.phase == holdoutCountdown:
		h.startActive(t)

	case name == holdoutMaxTimer && h.state.phase == holdoutActive:
		h.complete(t, false)
	}
}

// startCountdown moves ready → countdown. Reached either by full ready-up
// or by the ready timer firing with at least one player ready.
func (h *Holdout) startCountdown(t *engine.Transition) {
	next := h.cloneState()
	next.phase = holdoutCountdown
	h.state = next

	t.Emit(round.FactCountdownStarted, "", map[string]any{
		"duration_ms": h.cfg.Countdown.Milliseconds(),
		"players":     int64(len(h.state.ready)),
	})
	t.Cancel = append(t.Cancel, holdoutReadyTimer)
	t.Schedule = append(t.Schedule, engine.TimerRequest{
		Name:  holdoutCountdownTimer,
		After: h.cfg.Countdown,
	})
}

// startActive moves countdown → active. Every ready player starts engaged;
// they are holding the button as the countdown expires.
func (h *Holdout) startActive(t *engine.Transition) {
	next := h.cloneState()
	next.phase = holdoutActive
	next.engaged = make(map[round.PlayerID]bool, len(next.ready))
	for id := range next.ready {
		next.engaged[id] = true
	}
	h.state = next

	for _, id := range sortedIDs(h.state.engaged) {
		t.Emit(round.FactPlayerEngaged, id, nil)
	}

	// A live round that opens with participation already at the threshold
	// has nobody left to outlast.
	if h.cfg.Mode == HoldoutLive && len(h.state.engaged) <= h.cfg.Threshold {
		h.complete(t, false)
		return
	}

	t.Schedule = append(t.Schedule, engine.TimerRequest{
		Name:  holdoutMaxTimer,
		After: h.cfg.MaxDuration,
	})
}

// abort ends a round nobody readied for: no winners, no stakes.
func (h *Holdout) abort(t *engine.Transition) {
	next := h.cloneState()
	next.phase = holdoutCompleted
	h.state = next

	deltas := map[round.PlayerID]int64{}
	for _, id := range h.roster.Eligible() {
		deltas[id] = 0
	}

	t.Emit(round.FactGameAborted, "", map[string]any{"reason": "nobody_ready"})
	t.Cancel = append(t.Cancel, holdoutReadyTimer)
	t.Done = true
	t.Output = &round.Outcome{
		GameID:      "holdout",
		SilverDelta: deltas,
		Summary:     map[string]any{"aborted": true},
	}
}

// complete computes final rewards: every still-engaged player takes the
// prize, every released player forfeits the stake to the pool. Valid from
// every non-terminal phase; a force end before active play simply pays
// nobody.
func (h *Holdout) complete(t *engine.Transition, _ bool) {
	next := h.cloneState()
	next.phase = holdoutCompleted
	h.state = next

	deltas := map[round.PlayerID]int64{}
	for _, id := range h.roster.Eligible() {
		deltas[id] = 0
	}
	var pool int64
	for _, id := range h.state.eliminated {
		deltas[id] = -h.cfg.Stake
		pool += min64(h.cfg.Stake, h.roster.Silver(id))
	}
	winners := sortedIDs(h.state.engaged)
	for _, id := range winners {
		deltas[id] += h.cfg.Prize
	}

	summary := map[string]any{
		"mode":       string(h.cfg.Mode),
		"winners":    playerList(winners),
		"eliminated": playerList(h.state.eliminated),
	}

	t.Emit(round.FactGameCompleted, "", map[string]any{
		"game":    "holdout",
		"winners": int64(len(winners)),
		"pool":    pool,
	})
	t.Cancel = append(t.Cancel, holdoutReadyTimer, holdoutCountdownTimer, holdoutMaxTimer)
	t.Done = true
	t.Output = &round.Outcome{
		GameID:           "holdout",
		SilverDelta:      round.ClampSilver(deltas, h.roster),
		PoolContribution: pool,
		Summary:          summary,
	}
}

func (h *Holdout) cloneState() holdoutState {
	next := h.state
	next.ready = make(map[round.PlayerID]bool, len(h.state.ready))
	for id := range h.state.ready {
		next.ready[id] = true
	}
	next.engaged = make(map[round.PlayerID]bool, len(h.state.engaged))
	for id := range h.state.engaged {
		next.engaged[id] = true
	}
	next.eliminated = make([]round.PlayerID, len(h.state.eliminated))
	copy(next.eliminated, h.state.eliminated)
	return next
}

func sortedIDs(set map[round.PlayerID]bool) []round.PlayerID {
	ids := make([]round.PlayerID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func playerList(ids []round.PlayerID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
