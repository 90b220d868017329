package decision

import (
	"errors"

	"github.com/partyround/cartridge/internal/pairing"
	"github.com/partyround/cartridge/internal/round"
)

// ErrNotEnoughPlayers is returned when fewer than two eligible players
// leave nothing to pair.
var ErrNotEnoughPlayers = errors.New("decision: tournament needs at least two eligible players")

// NewTournament builds a multi-round decision machine whose rounds follow a
// deterministic round-robin pairing schedule: round i is played by pairing
// i's two members only. The schedule is generated once at construction from
// the eligible set and the day index, so a crashed cartridge re-created
// from the same roster and day replays the same bracket.
//
// The caller supplies GameID, Round/Final policies, Validate and RevealHold
// through cfg; Rounds, EligibleForRound and SetupRound are derived here and
// overwrite whatever cfg carried.
func NewTournament(cfg Config, roster round.Roster, day int) (*Machine, error) {
	schedule := pairing.Schedule(roster.Eligible(), int64(day))
	if len(schedule) == 0 {
		return nil, ErrNotEnoughPlayers
	}

	cfg.Rounds = len(schedule)
	cfg.EligibleForRound = func(roundNum int, _ round.Roster) []round.PlayerID {
		p := schedule[roundNum-1]
		return []round.PlayerID{p.A, p.B}
	}
	cfg.SetupRound = func(roundNum int) map[string]any {
		p := schedule[roundNum-1]
		return map[string]any{
			"pair_a": p.A,
			"pair_b": p.B,
		}
	}

	return New(cfg, roster, day)
}
