package commands

import (
	"github.com/spf13/cobra"

	"github.com/noderefresh/node-refresh-operator/cmd/noderefreshctl/handlers"
)

// Status returns the command showing refresh progress.
//
// Optional flags:
//
//	--kubeconfig: Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)
//	--watch, -w: Continuously watch status updates
//	--json: Output in JSON format
func Status() *cobra.Command {
	var (
		kubeconfig string
		watch      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Show the progress of NodeRefresh runs",
		Long: `Show the progress of NodeRefresh runs.

Without a name every NodeRefresh in the cluster is listed. With a name the
resource is shown in detail: phase, current node, refreshed nodes, pod
counters and the health gate.

Examples:
  # List all refreshes
  noderefreshctl status

  # Follow one refresh in a live dashboard
  noderefreshctl status workers --watch

  # Get status in JSON format
  noderefreshctl status workers --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return handlers.Status(cmd.Context(), kubeconfig, name, watch, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Continuously watch status updates")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
