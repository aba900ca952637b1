// Package main is the entry point for the noderefreshctl CLI.
//
// noderefreshctl inspects and authors NodeRefresh resources: it shows run
// progress, previews refresh schedules, scaffolds manifests with an
// interactive wizard and reads archived run reports.
//
// For detailed usage information, run:
//
//	noderefreshctl --help
package main

import (
	"fmt"
	"os"

	"github.com/noderefresh/node-refresh-operator/cmd/noderefreshctl/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
