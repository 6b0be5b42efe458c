package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPlanCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [component...]",
		Short: "Show the execution plan without running anything",
		Long: `Resolve and print the dependency-ordered execution plan for the named
components (all components when none are given). Nothing is executed
and the completion ledger is not touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, version, false)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			steps, err := app.orch.DryRun(args)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(steps)
			}

			for i, step := range steps {
				fmt.Printf("  %2d. %-20s [%s] %s\n", i+1, step.Name, step.Category, step.Description)
			}
			fmt.Printf("\n%d steps\n", len(steps))
			return nil
		},
	}

	return cmd
}
