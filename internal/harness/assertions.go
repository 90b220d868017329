package harness

import (
	"fmt"

	"github.com/partyround/cartridge/internal/round"
)

// Check evaluates every assertion against the result and returns all
// failures.
func Check(scenario *Scenario, result *Result) []error {
	var errs []error
	for i, a := range scenario.Assertions {
		if err := checkOne(&a, result); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err))
		}
	}
	return errs
}

func checkOne(a *Assertion, result *Result) error {
	switch a.Type {
	case AssertCompleted:
		if !result.Done {
			return fmt.Errorf("machine did not complete")
		}
		return nil
	case AssertTraceContains:
		return checkTraceContains(a, result.Facts)
	case AssertTraceCount:
		return checkTraceCount(a, result.Facts)
	case AssertTraceOrder:
		return checkTraceOrder(a, result.Facts)
	case AssertOutcome:
		return checkOutcome(a, result)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func checkTraceContains(a *Assertion, facts []round.Fact) error {
	for _, f := range facts {
		if string(f.Kind) != a.Kind {
			continue
		}
		if a.Actor != "" && string(f.ActorID) != a.Actor {
			continue
		}
		if payloadMatches(a.Payload, f.Payload) {
			return nil
		}
	}
	return fmt.Errorf("no fact matches kind=%q actor=%q payload=%v", a.Kind, a.Actor, a.Payload)
}

func checkTraceCount(a *Assertion, facts []round.Fact) error {
	count := 0
	for _, f := range facts {
		if string(f.Kind) == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("kind %q appears %d times, want %d", a.Kind, count, a.Count)
	}
	return nil
}

// checkTraceOrder verifies the kinds appear as a subsequence of the trace.
func checkTraceOrder(a *Assertion, facts []round.Fact) error {
	next := 0
	for _, f := range facts {
		if next < len(a.Kinds) && string(f.Kind) == a.Kinds[next] {
			next++
		}
	}
	if next != len(a.Kinds) {
		return fmt.Errorf("order broken at %q (matched %d of %d)", a.Kinds[next], next, len(a.Kinds))
	}
	return nil
}

func checkOutcome(a *Assertion, result *Result) error {
	if result.Output == nil {
		return fmt.Errorf("no outcome produced")
	}
	out := result.Output

	for id, want := range a.Silver {
		got, ok := out.SilverDelta[round.PlayerID(id)]
		if !ok {
			return fmt.Errorf("no silver delta for %q", id)
		}
		if got != want {
			return fmt.Errorf("silver delta for %q = %d, want %d", id, got, want)
		}
	}
	if a.Pool != nil && out.PoolContribution != *a.Pool {
		return fmt.Errorf("pool contribution = %d, want %d", out.PoolContribution, *a.Pool)
	}
	if a.FlagWinner != nil && string(out.FlagWinner) != *a.FlagWinner {
		return fmt.Errorf("flag winner = %q, want %q", out.FlagWinner, *a.FlagWinner)
	}
	return nil
}

// payloadMatches performs a subset match: every expected key must be
// present with an equal value. YAML integers arrive as int, fact payloads
// carry int64; both normalize before comparison.
func payloadMatches(want map[string]any, got map[string]any) bool {
	for key, w := range want {
		g, ok := got[key]
		if !ok {
			return false
		}
		if !valueEqual(w, g) {
			return false
		}
	}
	return true
}

func valueEqual(want, got any) bool {
	if wn, ok := asInt64(want); ok {
		gn, ok := asInt64(got)
		return ok && wn == gn
	}
	switch w := want.(type) {
	case string:
		switch g := got.(type) {
		case string:
			return w == g
		case round.PlayerID:
			return w == string(g)
		}
		return false
	case bool:
		g, ok := got.(bool)
		return ok && w == g
	}
	return fmt.Sprintf("%v", want) == fmt.Sprintf("%v", got)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
