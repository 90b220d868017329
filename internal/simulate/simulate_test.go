package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/games"
	"github.com/partyround/cartridge/internal/round"
)

func simParams() Params {
	return Params{
		Runs: 50,
		Seed: 42,
		Config: games.HoldoutConfig{
			Mode:         games.HoldoutLive,
			ReadyTimeout: 10 * time.Second,
			Countdown:    3 * time.Second,
			MaxDuration:  time.Minute,
			Prize:        50,
			Stake:        10,
		},
		Roster: round.Roster{
			"alice": {Alive: true, Silver: 100},
			"bob":   {Alive: true, Silver: 100},
			"carol": {Alive: true, Silver: 100},
		},
	}
}

func TestRunRejectsNonPositiveRuns(t *testing.T) {
	p := simParams()
	p.Runs = 0
	_, err := Run(p)
	assert.ErrorContains(t, err, "runs must be positive")
}

func TestRunIsDeterministic(t *testing.T) {
	first, err := Run(simParams())
	require.NoError(t, err)
	second, err := Run(simParams())
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed, same stats")
}

func TestSeedChangesOutcomes(t *testing.T) {
	first, err := Run(simParams())
	require.NoError(t, err)

	p := simParams()
	p.Seed = 43
	second, err := Run(p)
	require.NoError(t, err)

	assert.NotEqual(t, first.Wins, second.Wins)
}

func TestStatsAreConsistent(t *testing.T) {
	stats, err := Run(simParams())
	require.NoError(t, err)

	assert.Equal(t, 50, stats.Runs)
	assert.LessOrEqual(t, stats.Aborted, stats.Runs)
	for id, wins := range stats.Wins {
		assert.LessOrEqual(t, wins, stats.Runs-stats.Aborted, "player %s", id)
		assert.LessOrEqual(t, stats.WinRate(id), 1000)
	}
}

func TestNobodyReadyAbortsEveryRun(t *testing.T) {
	p := simParams()
	p.Archetypes = map[round.PlayerID]Archetype{
		"alice": {ReadyChance: 0},
		"bob":   {ReadyChance: 0},
		"carol": {ReadyChance: 0},
	}

	stats, err := Run(p)
	require.NoError(t, err)
	assert.Equal(t, p.Runs, stats.Aborted)
	assert.Empty(t, stats.Wins)
	assert.Zero(t, stats.TotalPool)
}

func TestIronGripAlwaysWins(t *testing.T) {
	p := simParams()
	p.Archetypes = map[round.PlayerID]Archetype{
		"alice": {ReadyChance: 1000, ReleaseChance: 0},
		"bob":   {ReadyChance: 0},
		"carol": {ReadyChance: 0},
	}

	stats, err := Run(p)
	require.NoError(t, err)
	assert.Zero(t, stats.Aborted)
	assert.Equal(t, p.Runs, stats.Wins["alice"])
	assert.Equal(t, 1000, stats.WinRate("alice"))
}
