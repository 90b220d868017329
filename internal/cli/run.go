package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/partyround/cartridge/internal/harness"
	"github.com/partyround/cartridge/internal/journal"
	"github.com/partyround/cartridge/internal/round"
)

// RunResult summarizes a scenario run.
type RunResult struct {
	Scenario string           `json:"scenario"`
	Facts    int              `json:"facts"`
	Done     bool             `json:"done"`
	Silver   map[string]int64 `json:"silver,omitempty"`
	Pool     int64            `json:"pool"`
	Winner   string           `json:"winner,omitempty"`
	Failures []string         `json:"failures,omitempty"`
}

func (r RunResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s: %d facts", r.Scenario, r.Facts)
	if r.Done {
		fmt.Fprintf(&b, ", completed (pool %d", r.Pool)
		if r.Winner != "" {
			fmt.Fprintf(&b, ", winner %s", r.Winner)
		}
		b.WriteString(")")
	} else {
		b.WriteString(", not completed")
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\nFAIL: %s", f)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		journalPath string
		printTrace  bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against its manifest",
		Long: `Run a YAML scenario under the simulated clock and evaluate its
assertions. The run is fully deterministic: the same scenario always
produces the same trace.

With --journal the fact stream is also appended to a SQLite journal,
ready for later replay.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], journalPath, printTrace, cmd)
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal to append the fact stream to")
	cmd.Flags().BoolVar(&printTrace, "trace", false, "print the canonical fact trace")
	return cmd
}

func runScenario(opts *RootOptions, path, journalPath string, printTrace bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitCommandError, "load scenario", err)
	}
	formatter.VerboseLog("scenario %s: %d steps", scenario.Name, len(scenario.Flow))

	result, err := harness.Run(scenario)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	failures := harness.Check(scenario, result)

	if journalPath != "" {
		if err := journalFacts(journalPath, scenario.Name, result); err != nil {
			formatter.Error(err.Error())
			return WrapExitError(ExitCommandError, "journal facts", err)
		}
		formatter.VerboseLog("journaled %d facts to %s", len(result.Facts), journalPath)
	}

	if printTrace {
		trace, err := round.FormatTrace(result.Facts)
		if err != nil {
			return WrapExitError(ExitCommandError, "format trace", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), trace)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Facts:    len(result.Facts),
		Done:     result.Done,
	}
	if result.Output != nil {
		out.Silver = make(map[string]int64, len(result.Output.SilverDelta))
		for id, d := range result.Output.SilverDelta {
			out.Silver[string(id)] = d
		}
		out.Pool = result.Output.PoolContribution
		out.Winner = string(result.Output.FlagWinner)
	}
	for _, f := range failures {
		out.Failures = append(out.Failures, f.Error())
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if len(failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(failures)))
	}
	return nil
}

// journalFacts appends a run's facts and outcome to a SQLite journal,
// keyed by scenario name.
func journalFacts(path, instanceID string, result *harness.Result) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	for _, f := range result.Facts {
		if err := j.WriteFact(ctx, instanceID, f); err != nil {
			return err
		}
	}
	if result.Output != nil {
		if err := j.WriteOutcome(ctx, instanceID, result.Output); err != nil {
			return err
		}
	}
	return nil
}
