package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/round"
)

func sampleResult() *Result {
	return &Result{
		Facts: []round.Fact{
			{Kind: round.FactRoundStarted, Payload: map[string]any{"game": "vault_bid", "round": int64(1)}, Seq: 1},
			{Kind: round.FactDecisionRecorded, ActorID: "alice", Payload: map[string]any{"round": int64(1)}, Seq: 2},
			{Kind: round.FactRoundRevealed, Payload: map[string]any{"round": int64(1), "pool": int64(10)}, Seq: 3},
			{Kind: round.FactGameCompleted, Seq: 4},
		},
		Done: true,
		Output: &round.Outcome{
			GameID:           "vault_bid",
			SilverDelta:      map[round.PlayerID]int64{"alice": 20, "bob": 0},
			PoolContribution: 10,
			FlagWinner:       "alice",
		},
	}
}

func int64p(n int64) *int64 { return &n }
func strp(s string) *string { return &s }

func TestCheckPasses(t *testing.T) {
	scenario := &Scenario{
		Assertions: []Assertion{
			{Type: AssertCompleted},
			{Type: AssertTraceContains, Kind: "decision.recorded", Actor: "alice", Payload: map[string]any{"round": 1}},
			{Type: AssertTraceCount, Kind: "decision.recorded", Count: 1},
			{Type: AssertTraceOrder, Kinds: []string{"round.started", "round.revealed", "game.completed"}},
			{Type: AssertOutcome, Silver: map[string]int64{"alice": 20}, Pool: int64p(10), FlagWinner: strp("alice")},
		},
	}
	assert.Empty(t, Check(scenario, sampleResult()))
}

func TestCheckReportsEveryFailure(t *testing.T) {
	scenario := &Scenario{
		Assertions: []Assertion{
			{Type: AssertTraceContains, Kind: "decision.recorded", Actor: "mallory"},
			{Type: AssertTraceCount, Kind: "decision.recorded", Count: 5},
			{Type: AssertOutcome, Pool: int64p(999)},
		},
	}
	errs := Check(scenario, sampleResult())
	require.Len(t, errs, 3, "all failures reported, not just the first")
	assert.ErrorContains(t, errs[0], "no fact matches")
	assert.ErrorContains(t, errs[1], "appears 1 times, want 5")
	assert.ErrorContains(t, errs[2], "pool contribution")
}

func TestCheckTraceOrderIsSubsequence(t *testing.T) {
	result := sampleResult()

	ok := &Assertion{Type: AssertTraceOrder, Kinds: []string{"round.started", "game.completed"}}
	assert.NoError(t, checkOne(ok, result), "gaps are fine")

	broken := &Assertion{Type: AssertTraceOrder, Kinds: []string{"game.completed", "round.started"}}
	assert.Error(t, checkOne(broken, result))
}

func TestCheckOutcomeWithoutOutput(t *testing.T) {
	result := &Result{Done: false}
	err := checkOne(&Assertion{Type: AssertOutcome}, result)
	assert.ErrorContains(t, err, "no outcome")
}

func TestPayloadSubsetMatch(t *testing.T) {
	got := map[string]any{"round": int64(2), "game": "duels", "forced": true}

	assert.True(t, payloadMatches(map[string]any{"round": 2}, got), "yaml int matches int64")
	assert.True(t, payloadMatches(map[string]any{"game": "duels", "forced": true}, got))
	assert.False(t, payloadMatches(map[string]any{"round": 3}, got))
	assert.False(t, payloadMatches(map[string]any{"absent": 1}, got))
}
