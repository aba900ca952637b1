package commands

import (
	"github.com/spf13/cobra"

	"github.com/noderefresh/node-refresh-operator/cmd/noderefreshctl/handlers"
)

// Schedule returns the command previewing a refresh schedule.
func Schedule() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "schedule <expression>",
		Short: "Preview when a refresh schedule fires",
		Long: `Preview when a refresh schedule fires.

The expression uses the same 5-field cron format (minute hour day month
weekday) as spec.refreshSchedule and is evaluated in UTC.

Examples:
  # Every Sunday at 03:00
  noderefreshctl schedule "0 3 * * 0"

  # Next 10 runs
  noderefreshctl schedule "*/30 * * * *" --count 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.Schedule(args[0], count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of run times to print")

	return cmd
}
