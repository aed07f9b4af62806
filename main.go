package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/veldt-lang/veldt/cmd"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "veldt [subcommand]",
	Short:        "veldt\n constraint-based type inference for a dynamic scripting language",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.SolveCmd)
}
