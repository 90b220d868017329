package games

import (
	"encoding/json"
	"fmt"

	"github.com/partyround/cartridge/internal/decision"
	"github.com/partyround/cartridge/internal/round"
)

// DuelPayload is the decision payload for one duel round: a claimed number
// of fingers, 0 through 5.
type DuelPayload struct {
	Claim int64 `json:"claim"`
}

// maxDuelClaim bounds a claim; anything outside 0..5 fails validation.
const maxDuelClaim = 5

// DuelRules parameterizes the round-robin duel tournament built on the
// multi-round decision engine and the pairing schedule.
//
// Documented policy rules:
//   - Higher claim wins the round prize; the loser pays nothing.
//   - Equal claims: nobody scores.
//   - One submission: the submitter wins by walkover.
//   - Zero submissions: nobody scores.
type DuelRules struct {
	// RoundPrize is the silver paid to each round's winner.
	RoundPrize int64

	// ChampionBonus goes to the player with the highest summed winnings
	// across all rounds (smallest ID on ties).
	ChampionBonus int64

	// CrowdBonus goes to every player whose claim equals the single most
	// frequent claim across the tournament; no bonus when frequencies tie.
	CrowdBonus int64
}

// Validate rejects claims outside 0..5.
func (r DuelRules) Validate(id round.PlayerID, payload json.RawMessage, ctx decision.Context) bool {
	var p DuelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	return p.Claim >= 0 && p.Claim <= maxDuelClaim
}

// Evaluate implements decision.RoundPolicy for one paired round.
func (r DuelRules) Evaluate(decisions map[round.PlayerID]json.RawMessage, ctx decision.Context) decision.Verdict {
	claims := map[round.PlayerID]int64{}
	for id, payload := range decisions {
		var p DuelPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			continue
		}
		claims[id] = p.Claim
	}

	picks := make(map[string]any, len(claims))
	for id, claim := range claims {
		picks[string(id)] = claim
	}
	summary := map[string]any{"picks": picks}

	var winner round.PlayerID
	switch len(claims) {
	case 0:
		summary["result"] = "no_contest"
		return decision.Verdict{Summary: summary}
	case 1:
		for id := range claims {
			winner = id
		}
		summary["result"] = "walkover"
	default:
		var best int64 = -1
		tie := false
		for id, claim := range claims {
			switch {
			case claim > best:
				winner, best, tie = id, claim, false
			case claim == best:
				tie = true
			}
		}
		if tie {
			summary["result"] = "draw"
			return decision.Verdict{Summary: summary}
		}
		summary["result"] = "win"
	}

	summary["winner"] = winner
	return decision.Verdict{
		SilverDelta: map[round.PlayerID]int64{winner: r.RoundPrize},
		Summary:     summary,
	}
}

// Aggregate implements decision.FinalPolicy: sums round winnings, then
// applies the champion and crowd bonuses.
func (r DuelRules) Aggregate(results []round.RoundResult, ctx decision.Context) decision.Verdict {
	totals := map[round.PlayerID]int64{}
	var pool int64
	claimFreq := map[int64]int{}
	claimants := map[int64][]round.PlayerID{}

	for _, res := range results {
		totals = round.MergeDeltas(totals, res.SilverDelta)
		pool += res.PoolContribution

		picks, _ := res.Summary["picks"].(map[string]any)
		for id, v := range picks {
			claim, ok := v.(int64)
			if !ok {
				continue
			}
			claimFreq[claim]++
			claimants[claim] = append(claimants[claim], round.PlayerID(id))
		}
	}

	champion := championOf(totals)
	if champion != "" && r.ChampionBonus > 0 {
		totals[champion] += r.ChampionBonus
	}

	if popular, ok := mostFrequentClaim(claimFreq); ok && r.CrowdBonus > 0 {
		rewarded := map[round.PlayerID]bool{}
		for _, id := range claimants[popular] {
			if !rewarded[id] {
				totals[id] += r.CrowdBonus
				rewarded[id] = true
			}
		}
	}

	return decision.Verdict{
		SilverDelta:      totals,
		PoolContribution: pool,
		FlagWinner:       champion,
		Summary: map[string]any{
			"rounds":   int64(len(results)),
			"champion": champion,
		},
	}
}

// championOf returns the player with the highest total, smallest ID on
// ties, or "" when nobody scored.
func championOf(totals map[round.PlayerID]int64) round.PlayerID {
	var champion round.PlayerID
	best := int64(0)
	for id, total := range totals {
		if total <= 0 {
			continue
		}
		if champion == "" || total > best || (total == best && id < champion) {
			champion = id
			best = total
		}
	}
	return champion
}

// mostFrequentClaim returns the single most frequent claim, or ok=false
// when the top frequency is shared.
func mostFrequentClaim(freq map[int64]int) (int64, bool) {
	var popular int64
	best := 0
	tie := false
	for claim, n := range freq {
		switch {
		case n > best:
			popular, best, tie = claim, n, false
		case n == best:
			tie = true
		}
	}
	return popular, best > 0 && !tie
}

// NewDuels assembles the round-robin duel tournament cartridge. The
// pairing schedule is seeded by the day index.
func NewDuels(rules DuelRules, roster round.Roster, day int) (*decision.Machine, error) {
	m, err := decision.NewTournament(decision.Config{
		GameID:   "duels",
		Round:    rules,
		Final:    rules,
		Validate: rules.Validate,
	}, roster, day)
	if err != nil {
		return nil, fmt.Errorf("build duels cartridge: %w", err)
	}
	return m, nil
}
