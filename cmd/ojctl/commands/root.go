package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
	assumeYes  bool
)

// Exit codes. No-action means the run finished but nothing needed doing:
// every step was already recorded as completed.
const (
	ExitSuccess  = 0
	ExitFailure  = 1
	ExitNoAction = 2
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ojctl",
		Short: "oj-server - map and transit server provisioning",
		Long: `ojctl provisions and manages a self-hosted map and transit server:
PostGIS with an OpenStreetMap import, OSRM routing, raster tile
rendering, GTFS transit data, and the web front ends in front of them.

Runs are idempotent: completed components are recorded in a ledger and
skipped on re-runs, with re-execution behind an explicit confirmation
or --force. The ledger invalidates itself when the implementation
changes, so upgraded tooling re-verifies the whole stack.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to all prompts")

	// Add subcommands
	rootCmd.AddCommand(newConfigureCommand(version))
	rootCmd.AddCommand(newTeardownCommand(version))
	rootCmd.AddCommand(newStatusCommand(version))
	rootCmd.AddCommand(newPlanCommand(version))
	rootCmd.AddCommand(newStateCommand(version))
	rootCmd.AddCommand(newHistoryCommand(version))

	return rootCmd
}
