// Package pairing produces deterministic round-robin pairing schedules for
// tournament cartridges. Given the same participant list and seed it always
// yields the same sequence of pairs, which is what makes tournament replay
// and golden-trace testing possible.
package pairing

import (
	"sort"

	"github.com/partyround/cartridge/internal/round"
)

// Pair is one unordered pair of participants. A and B follow the sorted
// order of the input list, so the pair identity is stable regardless of
// shuffle position.
type Pair struct {
	A round.PlayerID `json:"a"`
	B round.PlayerID `json:"b"`
}

// Schedule returns every unique unordered pair of the given participants
// exactly once (n·(n−1)/2 pairs for n participants) in a seeded
// pseudo-random order. No self-pairs, no duplicates.
//
// Participants are sorted before pair generation so the schedule depends
// only on the set of IDs and the seed, not on input order.
func Schedule(participants []round.PlayerID, seed int64) []Pair {
	ids := make([]round.PlayerID, len(participants))
	copy(ids, participants)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pairs := make([]Pair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, Pair{A: ids[i], B: ids[j]})
		}
	}

	shuffle(pairs, seed)
	return pairs
}

// shuffle applies a Fisher–Yates shuffle driven by a splitmix32 stream.
func shuffle(pairs []Pair, seed int64) {
	rng := newSplitmix32(uint32(seed))
	for i := len(pairs) - 1; i > 0; i-- {
		j := int(rng.next() % uint32(i+1))
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
}

// splitmix32 is a small 32-bit mixing PRNG. It is not suitable for anything
// cryptographic; it exists because its output is reproducible from an
// integer seed on every platform, unlike math/rand whose stream is not part
// of the Go compatibility promise across major versions.
type splitmix32 struct {
	state uint32
}

func newSplitmix32(seed uint32) *splitmix32 {
	return &splitmix32{state: seed}
}

func (s *splitmix32) next() uint32 {
	s.state += 0x9e3779b9
	z := s.state
	z ^= z >> 16
	z *= 0x21f0aaad
	z ^= z >> 15
	z *= 0x735a2d97
	z ^= z >> 15
	return z
}
