package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTeardownCommand(version string) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "teardown [component...]",
		Short: "Uninstall components in reverse dependency order",
		Long: `Resolve the plan for the named components (all components when none
are given), reverse it, and uninstall each component in turn.

Ledger entries are not removed by teardown; use "ojctl state clear"
afterwards if the completion state should be discarded too. With
--purge, components also remove their data (databases, imported
extracts, rendered tiles).`,
		Example: `  # Tear down the whole stack, keeping data
  ojctl teardown --yes

  # Tear down and delete all data
  ojctl teardown --purge --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, version, false)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			plan, err := app.orch.DryRun(args)
			if err != nil {
				return err
			}
			if !assumeYes {
				prompt := fmt.Sprintf("Tear down %d components", len(plan))
				if purge {
					prompt += " and delete their data"
				}
				if !newConfirm()(prompt) {
					fmt.Println("teardown cancelled")
					return nil
				}
			}

			summary, err := app.orch.Teardown(ctx, args, purge)
			if err != nil {
				return err
			}

			printSummary(summary)

			if summary.Aborted || !summary.Success {
				return &ExitError{Code: ExitFailure, Err: summary.Err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "also remove component data")

	return cmd
}
