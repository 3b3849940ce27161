package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Storekeeper ops CLI. Subcommands
// (bootstrap, partition, account) are attached here.
var rootCmd = &cobra.Command{
	Use:           "storekeeper",
	Short:         "Storekeeper ops CLI",
	Long:          "Operational utilities for Storekeeper (schema bootstrap, partition provisioning, account management).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
