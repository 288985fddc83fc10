// Command taskflow runs the task workflow service and its maintenance
// commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // build metadata

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskflow",
		Short: "Task lifecycle workflow service",
		Long: `taskflow serves the task workflow API: smart status transitions,
review gates, subtask cascades and batch operations over PostgreSQL.

Configuration is read from TASKFLOW_* environment variables and an optional
.env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newGrantCmd())
	root.AddCommand(newLinkCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "taskflow "+version)
		},
	}
}
