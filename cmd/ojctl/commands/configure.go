package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

func newConfigureCommand(version string) *cobra.Command {
	var (
		force           bool
		continueOnError bool
	)

	cmd := &cobra.Command{
		Use:   "configure [component...]",
		Short: "Install and configure components",
		Long: `Resolve the dependency-ordered plan for the named components (all
components when none are given) and configure each one in turn.

Components already recorded as completed are skipped. Re-running a
completed component requires either an interactive confirmation or
--force. Exit code 2 means the run finished with nothing to do.`,
		Example: `  # Configure the whole stack
  ojctl configure

  # Configure only the routing backend and its dependencies
  ojctl configure osrm

  # Re-run everything regardless of recorded completion
  ojctl configure --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, version, continueOnError)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			summary, err := app.orch.Configure(ctx, args, force)
			if err != nil {
				return err
			}

			printSummary(summary)

			if summary.Aborted || !summary.Success {
				return &ExitError{Code: ExitFailure, Err: summary.Err}
			}
			if summary.NoAction() {
				return &ExitError{Code: ExitNoAction}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-run components already recorded as completed")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going past a failed component")

	return cmd
}

func printSummary(summary *engine.OutcomeSummary) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
		return
	}

	for _, r := range summary.Results {
		switch r.Status {
		case engine.StepCompleted:
			fmt.Printf("  %-20s completed (%s)\n", r.StepID, r.Duration.Round(time.Millisecond))
		case engine.StepSkipped:
			fmt.Printf("  %-20s skipped\n", r.StepID)
		case engine.StepFailed:
			fmt.Printf("  %-20s FAILED: %v\n", r.StepID, r.Err)
		}
	}
	fmt.Printf("\n%s run %s: %d completed, %d skipped, %d failed\n",
		summary.Mode, statusWord(summary), summary.Completed, summary.Skipped, summary.Failed)
}

func statusWord(summary *engine.OutcomeSummary) string {
	switch {
	case summary.Aborted:
		return "aborted"
	case !summary.Success:
		return "failed"
	case summary.NoAction():
		return "finished (nothing to do)"
	default:
		return "succeeded"
	}
}
