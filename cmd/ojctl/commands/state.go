package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTasmania/oj-server-sub001/pkg/config"
	"github.com/OpenTasmania/oj-server-sub001/pkg/ledger"
)

func newStateCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and manage the completion ledger",
	}

	cmd.AddCommand(newStateListCommand())
	cmd.AddCommand(newStateClearCommand(version))

	return cmd
}

func newStateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List components recorded as completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := ledger.Open(ledger.Config{
				Path:        cfg.StatePath,
				Fingerprint: ledger.DefaultFingerprinter(cfg.SourceRoot),
			})
			if err != nil {
				return err
			}
			defer store.Close()

			completed := store.ListCompleted()

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(completed)
			}
			if len(completed) == 0 {
				fmt.Println("no components recorded as completed")
				return nil
			}
			for _, id := range completed {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func newStateClearCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard all recorded completion state",
		Long: `Truncate the completion ledger. The next configure run will treat
every component as not yet done. The system itself is untouched; this
only discards the record of what was completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !assumeYes && !newConfirm()("Discard all recorded completion state") {
				fmt.Println("state clear cancelled")
				return nil
			}

			app, err := newApp(ctx, version, false)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if err := app.orch.ClearState(); err != nil {
				return err
			}
			fmt.Println("completion state cleared")
			return nil
		},
	}
}
