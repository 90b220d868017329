package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/partyround/cartridge/internal/round"
)

// Scenario defines one deterministic cartridge run: a manifest, a flow of
// events and clock advances, and assertions over the result.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the CUE manifest directory, relative to the scenario
	// file. Resolved to an absolute path at load time.
	Manifest string `yaml:"manifest"`

	// Start is the simulated wall-clock start in RFC 3339. Defaults to
	// 2026-01-01T00:00:00Z when empty.
	Start string `yaml:"start,omitempty"`

	// Flow is the ordered list of steps to apply.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is either one delivered event or a clock advance, never both.
type FlowStep struct {
	// Event is the event kind to deliver (start, submit_result,
	// submit_decision, ready, touch, release, force_end).
	Event string `yaml:"event,omitempty"`

	// Player attributes the event. Empty for force_end.
	Player string `yaml:"player,omitempty"`

	// Payload is the event payload, serialized to JSON before delivery.
	Payload map[string]any `yaml:"payload,omitempty"`

	// AdvanceMS moves the simulated clock forward, firing due timers.
	AdvanceMS int64 `yaml:"advance_ms,omitempty"`
}

// Assertion validates the trace or the final outcome.
type Assertion struct {
	// Type selects the assertion:
	//   - "completed": the machine reached its terminal phase
	//   - "trace_contains": a fact with kind/actor/payload subset exists
	//   - "trace_count": kind appears exactly Count times
	//   - "trace_order": kinds appear in this relative order
	//   - "outcome": final deltas/pool/flag winner match
	Type string `yaml:"type"`

	// Kind is the fact kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Actor is the expected fact actor (trace_contains).
	Actor string `yaml:"actor,omitempty"`

	// Payload is a subset match over the fact payload (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Count is the expected occurrence count (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected relative order of fact kinds (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Silver is a subset match over final silver deltas (outcome).
	Silver map[string]int64 `yaml:"silver,omitempty"`

	// Pool is the expected pool contribution (outcome). Pointer so zero
	// is assertable.
	Pool *int64 `yaml:"pool,omitempty"`

	// FlagWinner is the expected flag winner (outcome). Pointer so "no
	// winner" is assertable as an empty string.
	FlagWinner *string `yaml:"flag_winner,omitempty"`
}

// Assertion type constants.
const (
	AssertCompleted     = "completed"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertOutcome       = "outcome"
)

// DefaultStart is the simulated start time used when a scenario omits one.
var DefaultStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently skipping a step. The
// manifest path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.Manifest != "" && !filepath.IsAbs(scenario.Manifest) {
		scenario.Manifest = filepath.Join(filepath.Dir(path), scenario.Manifest)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// StartTime returns the parsed start time.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Start == "" {
		return DefaultStart, nil
	}
	t, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time: %w", err)
	}
	return t.UTC(), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if _, err := os.Stat(s.Manifest); os.IsNotExist(err) {
		return fmt.Errorf("manifest directory not found: %s", s.Manifest)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return err
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *FlowStep) error {
	hasEvent := step.Event != ""
	hasAdvance := step.AdvanceMS != 0

	switch {
	case hasEvent == hasAdvance:
		return fmt.Errorf("flow[%d]: exactly one of event or advance_ms is required", index)
	case hasAdvance:
		if step.AdvanceMS < 0 {
			return fmt.Errorf("flow[%d]: advance_ms must be positive", index)
		}
		return nil
	}

	if _, err := round.ParseEventKind(step.Event); err != nil {
		return fmt.Errorf("flow[%d]: %w", index, err)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertCompleted, AssertOutcome:
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
