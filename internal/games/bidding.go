package games

import (
	"encoding/json"

	"github.com/partyround/cartridge/internal/decision"
	"github.com/partyround/cartridge/internal/round"
)

// BidPayload is the decision payload for the vault bidding game.
type BidPayload struct {
	Bid int64 `json:"bid"`
}

// VaultBid is the batch policy for the single-round vault auction: the
// highest bidder pays their bid into the shared pool and takes the vault.
//
// Documented policy rules, deliberately not engine behavior:
//   - Tie for highest: the tied bidder with the smallest player ID wins.
//   - Sole bidder: wins the vault and pays nothing.
//   - No bids at all: nobody wins, the vault stays where it was.
type VaultBid struct {
	// Vault is the silver amount awarded to the winning bidder.
	Vault int64
}

// Validate rejects bids that are negative or exceed the player's balance.
func (p VaultBid) Validate(id round.PlayerID, payload json.RawMessage, ctx decision.Context) bool {
	var bid BidPayload
	if err := json.Unmarshal(payload, &bid); err != nil {
		return false
	}
	return bid.Bid >= 0 && bid.Bid <= ctx.Roster.Silver(id)
}

// Evaluate implements decision.RoundPolicy.
func (p VaultBid) Evaluate(decisions map[round.PlayerID]json.RawMessage, ctx decision.Context) decision.Verdict {
	var winner round.PlayerID
	highest := int64(-1)
	for id, payload := range decisions {
		var bid BidPayload
		if err := json.Unmarshal(payload, &bid); err != nil {
			continue
		}
		if bid.Bid > highest || (bid.Bid == highest && id < winner) {
			winner = id
			highest = bid.Bid
		}
	}

	if winner == "" {
		return decision.Verdict{
			Summary: map[string]any{"winner": "", "bidders": int64(0)},
		}
	}

	paid := highest
	if len(decisions) == 1 {
		paid = 0
	}

	return decision.Verdict{
		SilverDelta:      map[round.PlayerID]int64{winner: p.Vault - paid},
		PoolContribution: paid,
		FlagWinner:       winner,
		Summary: map[string]any{
			"winner":  winner,
			"bid":     highest,
			"paid":    paid,
			"bidders": int64(len(decisions)),
		},
	}
}

// NewVaultBid assembles the single-round vault auction cartridge.
func NewVaultBid(vault int64, roster round.Roster, day int) (*decision.Machine, error) {
	policy := VaultBid{Vault: vault}
	return decision.New(decision.Config{
		GameID:   "vault_bid",
		Round:    policy,
		Validate: policy.Validate,
	}, roster, day)
}
