package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at link time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "loogp", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
