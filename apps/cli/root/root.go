package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the rental admin CLI. Subcommands
// (items, rent, wait) are attached here.
var rootCmd = &cobra.Command{
	Use:           "rentadmin",
	Short:         "VdGSA rental program admin CLI",
	Long:          "Administrative utilities for the VdGSA rental program (inventory intake, rentals, waiting list).",
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
