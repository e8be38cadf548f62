package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/taleweave/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Inspect and remove dialogue trees",
}

var treeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List characters that have a dialogue tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Engine.Dialogue.Characters(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No dialogue trees found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var treeShowCmd = &cobra.Command{
	Use:   "show <character-id>",
	Short: "Print a dialogue tree as JSON or Mermaid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := a.Engine.Tree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			fmt.Fprint(out, graph.DialogueMermaid(tree, nil))
		case "json":
			data, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal tree: %w", err)
			}
			fmt.Fprintln(out, string(data))
		default:
			return fmt.Errorf("unknown format %q (json, mermaid)", format)
		}
		return nil
	},
}

var treeRmCmd = &cobra.Command{
	Use:   "rm <character-id>...",
	Short: "Remove one or more dialogue trees",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var failed int
		for _, id := range args {
			if err := a.Engine.Dialogue.DeleteTree(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed dialogue tree '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d trees could not be removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.AddCommand(treeLsCmd)
	treeCmd.AddCommand(treeShowCmd)
	treeCmd.AddCommand(treeRmCmd)
	treeShowCmd.Flags().StringP("format", "f", "json", "Output format: json or mermaid")
}
