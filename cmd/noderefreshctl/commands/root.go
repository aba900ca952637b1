// Package commands defines the CLI command structure and flag bindings.
//
// Commands parse arguments and flags and delegate execution to the handlers
// package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the noderefreshctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noderefreshctl",
		Short: "Inspect and author NodeRefresh resources",
	}

	cmd.AddCommand(Status())
	cmd.AddCommand(Init())
	cmd.AddCommand(Schedule())
	cmd.AddCommand(Report())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
