package games

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/decision"
	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

func duelRules() DuelRules {
	return DuelRules{RoundPrize: 10, ChampionBonus: 15, CrowdBonus: 5}
}

func claim(d *engine.Driver, id round.PlayerID, n int64) {
	d.Deliver(round.Event{
		Kind:    round.EventSubmitDecision,
		Player:  id,
		Payload: json.RawMessage(fmt.Sprintf(`{"claim": %d}`, n)),
	})
}

// currentPair reads the pairing from the latest round.started fact.
func currentPair(t *testing.T, d *engine.Driver) (round.PlayerID, round.PlayerID) {
	t.Helper()
	for i := len(d.Facts()) - 1; i >= 0; i-- {
		f := d.Facts()[i]
		if f.Kind != round.FactRoundStarted {
			continue
		}
		a, ok := f.Payload["pair_a"].(round.PlayerID)
		require.True(t, ok)
		b, ok := f.Payload["pair_b"].(round.PlayerID)
		require.True(t, ok)
		return a, b
	}
	t.Fatal("no round.started fact")
	return "", ""
}

func TestDuelRoundOutcomes(t *testing.T) {
	rules := duelRules()
	ctx := decision.Context{}
	payload := func(n int64) json.RawMessage {
		return json.RawMessage(fmt.Sprintf(`{"claim": %d}`, n))
	}

	t.Run("higher claim wins", func(t *testing.T) {
		v := rules.Evaluate(map[round.PlayerID]json.RawMessage{
			"alice": payload(4),
			"bob":   payload(2),
		}, ctx)
		assert.Equal(t, map[round.PlayerID]int64{"alice": 10}, v.SilverDelta)
		assert.Equal(t, "win", v.Summary["result"])
	})

	t.Run("equal claims draw", func(t *testing.T) {
		v := rules.Evaluate(map[round.PlayerID]json.RawMessage{
			"alice": payload(3),
			"bob":   payload(3),
		}, ctx)
		assert.Empty(t, v.SilverDelta)
		assert.Equal(t, "draw", v.Summary["result"])
	})

	t.Run("walkover", func(t *testing.T) {
		v := rules.Evaluate(map[round.PlayerID]json.RawMessage{
			"bob": payload(0),
		}, ctx)
		assert.Equal(t, map[round.PlayerID]int64{"bob": 10}, v.SilverDelta)
		assert.Equal(t, "walkover", v.Summary["result"])
	})

	t.Run("no contest", func(t *testing.T) {
		v := rules.Evaluate(map[round.PlayerID]json.RawMessage{}, ctx)
		assert.Empty(t, v.SilverDelta)
		assert.Equal(t, "no_contest", v.Summary["result"])
	})
}

func TestDuelClaimValidation(t *testing.T) {
	rules := duelRules()
	ctx := decision.Context{}

	assert.True(t, rules.Validate("alice", json.RawMessage(`{"claim": 0}`), ctx))
	assert.True(t, rules.Validate("alice", json.RawMessage(`{"claim": 5}`), ctx))
	assert.False(t, rules.Validate("alice", json.RawMessage(`{"claim": 6}`), ctx))
	assert.False(t, rules.Validate("alice", json.RawMessage(`{"claim": -1}`), ctx))
	assert.False(t, rules.Validate("alice", json.RawMessage(`"five"`), ctx))
}

func TestDuelsTournamentEndToEnd(t *testing.T) {
	roster := round.Roster{
		"alice": {Alive: true, Silver: 100},
		"bob":   {Alive: true, Silver: 100},
		"carol": {Alive: true, Silver: 100},
	}
	claims := map[round.PlayerID]int64{"alice": 5, "bob": 3, "carol": 3}

	m, err := NewDuels(duelRules(), roster, 7)
	require.NoError(t, err)
	d := engine.NewDriver(m, epoch)

	for !d.Done() {
		a, b := currentPair(t, d)
		claim(d, a, claims[a])
		claim(d, b, claims[b])
		if !d.Done() {
			d.Advance(decision.DefaultRevealHold)
		}
	}

	require.Len(t, m.Results(), 3, "full round robin of three players")
	out := d.Output()
	require.NotNil(t, out)

	// alice beats bob and carol (20 + champion bonus); bob and carol draw
	// their duel but share the crowd bonus for the most popular claim.
	assert.Equal(t, map[round.PlayerID]int64{
		"alice": 35,
		"bob":   5,
		"carol": 5,
	}, out.SilverDelta)
	assert.Equal(t, round.PlayerID("alice"), out.FlagWinner)
	assert.Equal(t, int64(3), out.Summary["rounds"])
}

func TestChampionOfTieBreaksToSmallestID(t *testing.T) {
	assert.Equal(t, round.PlayerID("bob"), championOf(map[round.PlayerID]int64{
		"carol": 20,
		"bob":   20,
		"dave":  10,
	}))
	assert.Equal(t, round.PlayerID(""), championOf(map[round.PlayerID]int64{
		"alice": 0,
	}), "a zero total is not a championship")
}

func TestMostFrequentClaim(t *testing.T) {
	popular, ok := mostFrequentClaim(map[int64]int{3: 4, 5: 2})
	require.True(t, ok)
	assert.Equal(t, int64(3), popular)

	_, ok = mostFrequentClaim(map[int64]int{3: 2, 5: 2})
	assert.False(t, ok, "shared top frequency pays nobody")

	_, ok = mostFrequentClaim(nil)
	assert.False(t, ok)
}
