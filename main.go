package main

import (
	"os"

	"github.com/cottand/ilesolve/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "ilesolve [subcommand]",
	Short:        "ilesolve 🌴\n unification, canonical queries and snapshots for a trait solver",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.SolveCmd)
	rootCmd.AddCommand(cmd.CanonCmd)
}
