// Package simulate runs bulk deterministic playthroughs of the holdout
// cartridge. Players are modeled as archetypes with per-mille chances to
// ready up and to let go early; every run is fully determined by the seed
// and run index, so a simulation is reproducible across machines.
package simulate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/games"
	"github.com/partyround/cartridge/internal/round"
)

// Archetype models one player's behavior in per-mille probabilities.
type Archetype struct {
	// ReadyChance is the chance (0..1000) the player readies up at all.
	ReadyChance uint32

	// ReleaseChance is the chance (0..1000) the player lets go before the
	// round ends rather than holding to the bitter end.
	ReleaseChance uint32
}

// DefaultArchetype is an engaged-but-fallible player.
var DefaultArchetype = Archetype{ReadyChance: 900, ReleaseChance: 700}

// Params configures one simulation batch.
type Params struct {
	// Runs is the number of playthroughs.
	Runs int

	// Seed determines every random draw across the batch.
	Seed int64

	// Config is the holdout cartridge configuration under test.
	Config games.HoldoutConfig

	// Roster is the player snapshot shared by all runs.
	Roster round.Roster

	// Archetypes assigns behavior per player; missing entries use
	// DefaultArchetype.
	Archetypes map[round.PlayerID]Archetype
}

// Stats aggregates a simulation batch.
type Stats struct {
	Runs    int
	Aborted int

	// Wins counts runs in which the player was among the winners.
	Wins map[round.PlayerID]int

	// TotalPool sums pool contributions across all runs.
	TotalPool int64
}

// WinRate returns the player's share of non-aborted runs, in per-mille.
func (s *Stats) WinRate(id round.PlayerID) int {
	played := s.Runs - s.Aborted
	if played == 0 {
		return 0
	}
	return s.Wins[id] * 1000 / played
}

// Run executes the batch.
func Run(p Params) (*Stats, error) {
	if p.Runs <= 0 {
		return nil, errors.New("simulate: runs must be positive")
	}

	stats := &Stats{
		Runs: p.Runs,
		Wins: map[round.PlayerID]int{},
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for run := 0; run < p.Runs; run++ {
		outcome, aborted, err := playOne(p, start, run)
		if err != nil {
			return nil, fmt.Errorf("simulate run %d: %w", run, err)
		}
		if aborted {
			stats.Aborted++
			continue
		}
		stats.TotalPool += outcome.PoolContribution
		winners, _ := outcome.Summary["winners"].([]any)
		for _, w := range winners {
			if id, ok := w.(string); ok {
				stats.Wins[round.PlayerID(id)]++
			}
		}
	}
	return stats, nil
}

// plannedEvent is one scheduled player action in a run's timeline.
type plannedEvent struct {
	at time.Duration
	ev round.Event
}

func playOne(p Params, start time.Time, run int) (*round.Outcome, bool, error) {
	machine, err := games.NewHoldout(p.Config, p.Roster, run)
	if err != nil {
		return nil, false, err
	}

	timeline := planTimeline(p, run)
	driver := engine.NewDriver(machine, start)

	var elapsed time.Duration
	for _, pe := range timeline {
		if driver.Done() {
			break
		}
		if pe.at > elapsed {
			driver.Advance(pe.at - elapsed)
			elapsed = pe.at
		}
		driver.Deliver(pe.ev)
	}
	if !driver.Done() {
		// Run out the clock: ready timeout, countdown and max duration
		// combined bound every path to completion.
		driver.Advance(p.Config.ReadyTimeout + p.Config.Countdown + p.Config.MaxDuration)
	}

	out := driver.Output()
	if out == nil {
		return nil, false, errors.New("no outcome produced")
	}
	if aborted, _ := out.Summary["aborted"].(bool); aborted {
		return out, true, nil
	}
	return out, false, nil
}

// planTimeline draws each player's behavior for one run. Draw order is
// fixed (sorted player IDs), so the same seed and run index always yield
// the same timeline.
func planTimeline(p Params, run int) []plannedEvent {
	rng := newSplitmix32(mixSeed(p.Seed, run))

	var timeline []plannedEvent
	for _, id := range p.Roster.Eligible() {
		arch, ok := p.Archetypes[id]
		if !ok {
			arch = DefaultArchetype
		}

		if rng.next()%1000 >= arch.ReadyChance {
			// Never readies; still burn the draws so one player's
			// archetype does not shift everyone else's stream.
			rng.next()
			rng.next()
			continue
		}
		readyAt := randomDuration(rng, p.Config.ReadyTimeout)
		timeline = append(timeline, plannedEvent{
			at: readyAt,
			ev: round.Event{Kind: round.EventReady, Player: id},
		})

		if rng.next()%1000 < arch.ReleaseChance {
			holdFor := randomDuration(rng, p.Config.MaxDuration)
			timeline = append(timeline, plannedEvent{
				at: p.Config.ReadyTimeout + p.Config.Countdown + holdFor,
				ev: round.Event{Kind: round.EventRelease, Player: id},
			})
		} else {
			rng.next()
		}
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].at < timeline[j].at
	})
	return timeline
}

// randomDuration draws a uniform duration in [0, max), millisecond
// granularity.
func randomDuration(rng *splitmix32, max time.Duration) time.Duration {
	ms := max.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return time.Duration(int64(rng.next())%ms) * time.Millisecond
}

func mixSeed(seed int64, run int) uint32 {
	return uint32(seed) ^ uint32(run)*0x9e3779b9
}

// splitmix32 is the same small mixing PRNG the pairing schedule uses. Not
// suitable for anything security sensitive.
type splitmix32 struct {
	state uint32
}

func newSplitmix32(seed uint32) *splitmix32 {
	return &splitmix32{state: seed}
}

func (s *splitmix32) next() uint32 {
	s.state += 0x9e3779b9
	z := s.state
	z = (z ^ (z >> 16)) * 0x21f0aaad
	z = (z ^ (z >> 15)) * 0x735a2d97
	return z ^ (z >> 15)
}
