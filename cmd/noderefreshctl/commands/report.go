package commands

import (
	"github.com/spf13/cobra"

	"github.com/noderefresh/node-refresh-operator/cmd/noderefreshctl/handlers"
)

// Report returns the command group for archived run reports.
//
// Reports are read from the object storage bucket configured for the
// operator, so the same config file (or NODE_REFRESH_* variables) is used.
func Report() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read archived run reports",
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the operator configuration file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	cmd.AddCommand(&cobra.Command{
		Use:   "list <name>",
		Short: "List archived runs of a NodeRefresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ReportList(cmd.Context(), configPath, args[0], jsonOutput)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name> <run-id>",
		Short: "Show one archived run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ReportShow(cmd.Context(), configPath, args[0], args[1], jsonOutput)
		},
	})

	return cmd
}
