package main

import (
	"os"

	"github.com/aretw0/taleweave"
	"github.com/aretw0/taleweave/internal/presentation/tui"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat <character-id>",
	Short: "Chat with a character in the terminal",
	Long: `Opens (or resumes) the character's dialogue and reads one message per line.
Type /path, /switch, /delete or /edit to work with the tree, /quit to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		headless, _ := cmd.Flags().GetBool("headless")
		if !cmd.Flags().Changed("headless") && !term.IsTerminal(int(os.Stdin.Fd())) {
			// Piped input: keep output machine-readable.
			headless = true
		}
		plain, _ := cmd.Flags().GetBool("plain")
		userName, _ := cmd.Flags().GetString("user")
		presetID, _ := cmd.Flags().GetString("preset")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		runner := taleweave.NewRunner(os.Stdin, cmd.OutOrStdout())
		runner.Headless = headless
		runner.Config = domain.RuntimeConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			PresetID:    presetID,
			UserName:    userName,
		}
		if !plain && !headless {
			runner.Renderer = tui.NewRenderer()
		}
		if !headless {
			tui.PrintBanner(cmd.OutOrStdout(), taleweave.Version)
		}
		return runner.Run(cmd.Context(), a.Engine, args[0])
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("headless", false, "No banner, prompt marker or markdown rendering (default when stdin is not a terminal)")
	chatCmd.Flags().Bool("plain", false, "Print screen content without markdown rendering")
	chatCmd.Flags().String("user", "", "Name used for {{user}} in prompts")
	chatCmd.Flags().String("preset", "", "Preset id overriding the configured one")
}
