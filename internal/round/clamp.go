package round

// ClampSilver limits every player's delta so that delta + pre-round balance
// never goes negative. Policies are written without per-player context and
// must not clamp themselves; this is the engine's single universal
// post-processing step before an outcome leaves the engine.
//
// The input map is not mutated.
func ClampSilver(deltas map[PlayerID]int64, roster Roster) map[PlayerID]int64 {
	out := make(map[PlayerID]int64, len(deltas))
	for id, delta := range deltas {
		if balance := roster.Silver(id); delta < -balance {
			delta = -balance
		}
		out[id] = delta
	}
	return out
}

// MergeDeltas sums b into a copy of a. Used when folding round results.
func MergeDeltas(a, b map[PlayerID]int64) map[PlayerID]int64 {
	out := make(map[PlayerID]int64, len(a)+len(b))
	for id, d := range a {
		out[id] = d
	}
	for id, d := range b {
		out[id] += d
	}
	return out
}
