package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/round"
)

func players(ids ...string) []round.PlayerID {
	out := make([]round.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = round.PlayerID(id)
	}
	return out
}

func TestScheduleIsDeterministic(t *testing.T) {
	ids := players("alice", "bob", "carol", "dave")

	first := Schedule(ids, 42)
	second := Schedule(ids, 42)

	assert.Equal(t, first, second, "same participants and seed must yield the same sequence")
}

func TestScheduleCoversAllUnorderedPairsExactlyOnce(t *testing.T) {
	ids := players("alice", "bob", "carol", "dave")

	pairs := Schedule(ids, 7)
	require.Len(t, pairs, 6, "4 players produce 4*3/2 pairs")

	seen := map[Pair]int{}
	for _, p := range pairs {
		assert.NotEqual(t, p.A, p.B, "no self-pairs")
		assert.Less(t, p.A, p.B, "pair identity uses sorted member order")
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "pair %v appears exactly once", p)
	}
}

func TestScheduleIndependentOfInputOrder(t *testing.T) {
	a := Schedule(players("carol", "alice", "bob"), 42)
	b := Schedule(players("bob", "carol", "alice"), 42)

	assert.Equal(t, a, b)
}

func TestScheduleSeedChangesOrderNotContents(t *testing.T) {
	ids := players("alice", "bob", "carol", "dave", "erin")

	a := Schedule(ids, 1)
	b := Schedule(ids, 2)
	require.Len(t, a, 10)
	require.Len(t, b, 10)

	setA := map[Pair]bool{}
	setB := map[Pair]bool{}
	for i := range a {
		setA[a[i]] = true
		setB[b[i]] = true
	}
	assert.Equal(t, setA, setB, "different seeds permute the same pair set")
}

func TestScheduleThreePlayersSeed42StableAcrossRuns(t *testing.T) {
	ids := players("alice", "bob", "carol")

	reference := Schedule(ids, 42)
	require.Len(t, reference, 3)

	for i := 0; i < 20; i++ {
		assert.Equal(t, reference, Schedule(ids, 42))
	}
}

func TestScheduleDegenerateInputs(t *testing.T) {
	assert.Empty(t, Schedule(nil, 42))
	assert.Empty(t, Schedule(players("solo"), 42))
	assert.Len(t, Schedule(players("a", "b"), 42), 1)
}
