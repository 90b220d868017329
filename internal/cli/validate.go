package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partyround/cartridge/internal/config"
)

// ValidationResult summarizes a validated manifest.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Kind    string `json:"kind,omitempty"`
	Day     int    `json:"day,omitempty"`
	Players int    `json:"players,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r ValidationResult) String() string {
	if !r.Valid {
		return fmt.Sprintf("invalid: %s", r.Error)
	}
	return fmt.Sprintf("valid: %s (day %d, %d players)", r.Kind, r.Day, r.Players)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate a cartridge manifest",
		Long: `Validate a CUE cartridge manifest without running it.

Compiles the manifest and constructs the cartridge, so every schema
error, unknown game kind and nonsensical parameter is reported with its
source position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	manifest, err := config.LoadManifest(dir)
	if err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "manifest invalid", err)
	}
	formatter.VerboseLog("manifest compiled: kind=%s", manifest.Game.Kind)

	// Constructing the machine catches errors the schema cannot, e.g. a
	// roster with no eligible players.
	if _, err := config.Build(manifest); err != nil {
		formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "cartridge construction failed", err)
	}

	return formatter.Success(ValidationResult{
		Valid:   true,
		Kind:    manifest.Game.Kind,
		Day:     manifest.Game.Day,
		Players: len(manifest.Roster.Eligible()),
	})
}
