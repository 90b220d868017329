package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/partyround/cartridge/internal/round"
)

// AssertGolden compares a result's trace against the golden file named
// after the scenario. Golden files live in testdata/golden and hold the
// canonical line-per-fact trace, so a diff reads as "which fact changed".
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	trace, err := round.FormatTrace(result.Facts)
	if err != nil {
		t.Fatalf("format trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(trace))
}

// RunWithGolden executes a scenario, evaluates its assertions, and pins
// the trace with a golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, errs := RunAndCheck(scenario)
	for _, err := range errs {
		t.Errorf("scenario %s: %v", scenario.Name, err)
	}
	if result == nil {
		t.FailNow()
	}

	AssertGolden(t, scenario.Name, result)
	return result
}
