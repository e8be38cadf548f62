package main

import (
	"fmt"

	"github.com/aretw0/taleweave"
	"github.com/aretw0/taleweave/pkg/adapters/llm"
	"github.com/aretw0/taleweave/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Check a workflow definition",
	Long: `Parses a workflow definition and builds it against the built-in node types,
reporting unknown types, dangling edges, cycles and unsatisfied input fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runValidate(args[0]); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Workflow is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	def, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	_, err = taleweave.New(memory.NewStore(),
		taleweave.WithGenerator(llm.EchoGenerator{}),
		taleweave.WithWorkflowDefinition(def),
	)
	return err
}
