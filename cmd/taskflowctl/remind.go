package main

import (
	"github.com/spf13/cobra"

	"taskflow/internal/app"
	"taskflow/internal/config"
)

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Daily reminder operations",
	}

	var dryRun bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Scan for employees without an update today and text them",
		Long: `Run the daily reminder job once, outside the server's schedule.

Examples:
  taskflowctl remind run
  taskflowctl remind run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.New(cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				recipients, err := a.Reminders.Preview(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), recipients)
			}

			report, err := a.Reminders.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	run.Flags().BoolVar(&dryRun, "dry-run", false, "list recipients without sending")
	cmd.AddCommand(run)

	return cmd
}
