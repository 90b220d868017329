package games

import (
	"time"

	"github.com/partyround/cartridge/internal/arcade"
	"github.com/partyround/cartridge/internal/round"
)

// VaultCracker is the per-player reward policy for the vault-cracker
// arcade minigame. The client reports a final {"score": n} payload; the
// server-side elapsed time buys a speed bonus.
//
//	reward = score + score * remaining / (2 * limit)
//
// A player who never started, or whose backfilled result is empty, scores
// zero. A tenth of every reward feeds the shared pool.
type VaultCracker struct {
	// PoolShare is the divisor for the pool contribution; 10 means one
	// tenth of the reward. Zero disables contributions.
	PoolShare int64
}

// Reward implements arcade.Policy.
func (p VaultCracker) Reward(result map[string]int64, elapsed, limit time.Duration) (int64, int64) {
	score := result["score"]
	if score <= 0 || limit <= 0 {
		return 0, 0
	}

	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	bonus := score * int64(remaining) / (2 * int64(limit))
	reward := score + bonus

	var pool int64
	if p.PoolShare > 0 {
		pool = reward / p.PoolShare
	}
	return reward, pool
}

// NewVaultCracker assembles the vault-cracker arcade cartridge.
func NewVaultCracker(limit time.Duration, roster round.Roster, day int) (*arcade.Machine, error) {
	return arcade.New(arcade.Config{
		GameID:    "vault_cracker",
		TimeLimit: limit,
		Policy:    VaultCracker{PoolShare: 10},
	}, roster, day)
}
