package harness

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/partyround/cartridge/internal/config"
	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// Result captures everything a scenario run produced.
type Result struct {
	// Facts is the full stamped fact stream in sequence order.
	Facts []round.Fact

	// Done reports whether the machine reached its terminal phase.
	Done bool

	// Output is the final outcome, nil if the machine never completed.
	Output *round.Outcome
}

// Run executes a scenario: it loads and builds the manifest, drives the
// machine through the flow under the simulated clock, and returns the
// collected trace. Assertion checking is separate; see Check.
func Run(scenario *Scenario) (*Result, error) {
	manifest, err := config.LoadManifest(scenario.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	machine, err := config.Build(manifest)
	if err != nil {
		return nil, fmt.Errorf("build cartridge: %w", err)
	}
	start, err := scenario.StartTime()
	if err != nil {
		return nil, err
	}

	driver := engine.NewDriver(machine, start)
	for i, step := range scenario.Flow {
		if err := applyStep(driver, &step); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	return &Result{
		Facts:  driver.Facts(),
		Done:   driver.Done(),
		Output: driver.Output(),
	}, nil
}

func applyStep(d *engine.Driver, step *FlowStep) error {
	if step.AdvanceMS > 0 {
		d.Advance(time.Duration(step.AdvanceMS) * time.Millisecond)
		return nil
	}

	kind, err := round.ParseEventKind(step.Event)
	if err != nil {
		return err
	}

	var payload json.RawMessage
	if step.Payload != nil {
		payload, err = json.Marshal(step.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	d.Deliver(round.Event{
		Kind:    kind,
		Player:  round.PlayerID(step.Player),
		Payload: payload,
	})
	return nil
}

// RunAndCheck runs the scenario and evaluates its assertions, returning
// every failure rather than stopping at the first.
func RunAndCheck(scenario *Scenario) (*Result, []error) {
	result, err := Run(scenario)
	if err != nil {
		return nil, []error{err}
	}
	return result, Check(scenario, result)
}
