package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/taleweave"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of taleweave",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "taleweave version %s\n", strings.TrimSpace(taleweave.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
