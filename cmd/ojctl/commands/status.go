package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [component...]",
		Short: "Probe the live installation state of components",
		Long: `Probe each component's actual installation state on the system. The
completion ledger is not consulted: the answer reflects the system as
it is right now, which may disagree with recorded completion if the
system changed out-of-band.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, version, false)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			status, probeErr := app.orch.Status(ctx, args)

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(status)
			} else {
				names := make([]string, 0, len(status))
				for name := range status {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					state := "not installed"
					if status[name] {
						state = "installed"
					}
					fmt.Printf("  %-20s %s\n", name, state)
				}
			}

			if probeErr != nil {
				return &ExitError{Code: ExitFailure, Err: probeErr}
			}
			return nil
		},
	}

	return cmd
}
