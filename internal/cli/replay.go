package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/partyround/cartridge/internal/journal"
	"github.com/partyround/cartridge/internal/round"
)

// ReplayResult summarizes a journaled instance.
type ReplayResult struct {
	Instance string `json:"instance"`
	Facts    int    `json:"facts"`
	Digest   string `json:"digest"`
	Trace    string `json:"trace,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

func (r ReplayResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "instance %s: %d facts, digest %s\n", r.Instance, r.Facts, r.Digest)
	b.WriteString(r.Trace)
	if r.Outcome != "" {
		fmt.Fprintf(&b, "outcome: %s\n", r.Outcome)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// InstanceList is the output of replay without an instance argument.
type InstanceList struct {
	Instances []string `json:"instances"`
}

func (l InstanceList) String() string {
	if len(l.Instances) == 0 {
		return "no journaled instances"
	}
	return strings.Join(l.Instances, "\n")
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var filter journal.FactQuery

	cmd := &cobra.Command{
		Use:   "replay <journal.db> [instance]",
		Short: "Replay a journaled fact stream",
		Long: `Replay the facts journaled for an instance as a canonical trace,
along with its stored outcome if the instance completed.

Without an instance argument, lists the journaled instances. The --kind
and --actor flags narrow the trace to matching facts.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			instance := ""
			if len(args) > 1 {
				instance = args[1]
			}
			return runReplay(rootOpts, args[0], instance, filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter.Kind, "kind", "", "only facts of this kind")
	cmd.Flags().StringVar(&filter.Actor, "actor", "", "only facts attributed to this player")
	return cmd
}

func runReplay(opts *RootOptions, path, instance string, filter journal.FactQuery, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(path); err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if instance == "" {
		ids, err := j.Instances(ctx)
		if err != nil {
			formatter.Error(err.Error())
			return WrapExitError(ExitCommandError, "list instances", err)
		}
		return formatter.Success(InstanceList{Instances: ids})
	}

	facts, err := j.QueryFacts(ctx, instance, filter)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "read facts", err)
	}
	if len(facts) == 0 {
		msg := fmt.Sprintf("no facts journaled for instance %q", instance)
		formatter.Error(msg)
		return NewExitError(ExitFailure, msg)
	}

	trace, err := round.FormatTrace(facts)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "format trace", err)
	}
	digest, err := round.TraceDigest(facts)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "digest trace", err)
	}

	outcome, _, err := j.ReadOutcome(ctx, instance)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "read outcome", err)
	}

	return formatter.Success(ReplayResult{
		Instance: instance,
		Facts:    len(facts),
		Digest:   digest,
		Trace:    trace,
		Outcome:  outcome,
	})
}
