package main

import (
	"fmt"

	"github.com/aretw0/taleweave/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the turn workflow as a Mermaid diagram",
	Long:  `Builds the configured turn workflow and prints it as a Mermaid flowchart (graph TD).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprint(cmd.OutOrStdout(), graph.WorkflowMermaid(a.Engine.Workflow().Configs(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
