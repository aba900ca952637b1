package commands

import (
	"github.com/spf13/cobra"

	"github.com/noderefresh/node-refresh-operator/cmd/noderefreshctl/handlers"
)

// Init returns the command for interactively creating a NodeRefresh manifest.
//
// Flags:
//
//	--output, -o: Path to output file, "-" for stdout (default "-")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a NodeRefresh manifest",
		Long: `Interactively create a NodeRefresh manifest.

The wizard asks for the target node labels, the eviction batch size, the
minimum cluster health, grace and provisioning timeouts and an optional
cron schedule. Every answer is pre-filled with the operator default.

Examples:
  # Print the manifest
  noderefreshctl init

  # Write it to a file
  noderefreshctl init -o refresh.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Output file path, - for stdout")

	return cmd
}
