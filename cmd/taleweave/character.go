package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/spf13/cobra"
)

var characterCmd = &cobra.Command{
	Use:     "character",
	Aliases: []string{"char"},
	Short:   "Manage character cards",
}

var characterLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List characters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		chars, err := a.Engine.Characters.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(chars) == 0 {
			fmt.Fprintln(out, "No characters found.")
			return nil
		}
		for _, c := range chars {
			fmt.Fprintf(out, "- %s (%s)\n", c.ID, c.Name)
		}
		return nil
	},
}

var characterImportCmd = &cobra.Command{
	Use:   "import <card.json>...",
	Short: "Import character cards from JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			var c domain.Character
			if err := json.Unmarshal(data, &c); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			saved, err := a.Engine.Characters.Save(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported '%s' as %s\n", saved.Name, saved.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(characterCmd)
	characterCmd.AddCommand(characterLsCmd)
	characterCmd.AddCommand(characterImportCmd)
}
