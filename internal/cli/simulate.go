package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/partyround/cartridge/internal/config"
	"github.com/partyround/cartridge/internal/games"
	"github.com/partyround/cartridge/internal/simulate"
)

// SimulationResult summarizes a simulation batch.
type SimulationResult struct {
	Runs      int            `json:"runs"`
	Aborted   int            `json:"aborted"`
	TotalPool int64          `json:"total_pool"`
	Wins      map[string]int `json:"wins,omitempty"`
	WinRates  map[string]int `json:"win_rates,omitempty"` // per-mille
}

func (r SimulationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d runs, %d aborted, total pool %d", r.Runs, r.Aborted, r.TotalPool)

	ids := make([]string, 0, len(r.Wins))
	for id := range r.Wins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "\n%s: %d wins (%d.%d%%)", id, r.Wins[id], r.WinRates[id]/10, r.WinRates[id]%10)
	}
	return b.String()
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		runs int
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "simulate <manifest-dir>",
		Short: "Run bulk playthroughs of a holdout manifest",
		Long: `Simulate many playthroughs of a holdout cartridge with archetype
players. The batch is fully determined by the seed, so a simulation is
reproducible across machines.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], runs, seed, cmd)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 100, "number of playthroughs")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for all random draws")
	return cmd
}

func runSimulate(opts *RootOptions, dir string, runs int, seed int64, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	manifest, err := config.LoadManifest(dir)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "manifest invalid", err)
	}
	if manifest.Game.Kind != config.KindHoldout {
		msg := fmt.Sprintf("simulate supports %s manifests, got %s", config.KindHoldout, manifest.Game.Kind)
		formatter.Error(msg)
		return NewExitError(ExitFailure, msg)
	}

	h := manifest.Game.Holdout
	stats, err := simulate.Run(simulate.Params{
		Runs: runs,
		Seed: seed,
		Config: games.HoldoutConfig{
			Mode:         h.Mode,
			ReadyTimeout: h.ReadyTimeout,
			Countdown:    h.Countdown,
			MaxDuration:  h.MaxDuration,
			Threshold:    h.Threshold,
			Prize:        h.Prize,
			Stake:        h.Stake,
		},
		Roster: manifest.Roster,
	})
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "simulation failed", err)
	}
	formatter.VerboseLog("simulated %d runs with seed %d", runs, seed)

	out := SimulationResult{
		Runs:      stats.Runs,
		Aborted:   stats.Aborted,
		TotalPool: stats.TotalPool,
		Wins:      map[string]int{},
		WinRates:  map[string]int{},
	}
	for id, wins := range stats.Wins {
		out.Wins[string(id)] = wins
		out.WinRates[string(id)] = stats.WinRate(id)
	}
	return formatter.Success(out)
}
