package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(version string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded run history",
		Long: `List recent runs from the history database, or show the step-by-step
record of one run when a run id is given. Requires history_db to be
configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, version, false)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if app.history == nil {
				return fmt.Errorf("run history is disabled: no history_db configured")
			}

			if len(args) == 1 {
				return showRun(cmd, app, args[0])
			}

			runs, err := app.history.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			for _, run := range runs {
				fmt.Printf("  %s  %-9s %-9s %2d steps  %s\n",
					run.ID, run.Mode, run.Status, run.TotalSteps,
					run.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")

	return cmd
}

func showRun(cmd *cobra.Command, app *app, runID string) error {
	ctx := cmd.Context()

	run, err := app.history.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	events, err := app.history.ListStepEvents(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run    interface{} `json:"run"`
			Events interface{} `json:"events"`
		}{run, events})
	}

	fmt.Printf("run %s: %s %s, started %s\n",
		run.ID, run.Mode, run.Status, run.StartedAt.Format(time.RFC3339))
	for _, e := range events {
		line := fmt.Sprintf("  %-20s %-9s %4dms", e.StepID, e.Status, e.DurationMS)
		if e.Error != nil {
			line += "  " + *e.Error
		}
		fmt.Println(line)
	}
	return nil
}
