package nodes

import (
	"github.com/aretw0/taleweave/pkg/workflow"
)

// TurnWorkflowName names the default turn graph.
const TurnWorkflowName = "turn"

// TurnOptions tune the default turn graph.
type TurnOptions struct {
	// RecentTurns is the number of trailing turns given verbatim to the model.
	RecentTurns int
	// LoreWindow is the number of history messages scanned for world-book keys.
	LoreWindow int
	PresetID   string
	// Model, Temperature and MaxTokens are generation defaults.
	Model       string
	Temperature *float64
	MaxTokens   int
	// MaxInputSize bounds one user message in bytes; 0 means DefaultMaxInputSize.
	MaxInputSize int
}

// TurnDefinition returns the default turn graph.
func TurnDefinition(opts TurnOptions) *workflow.Definition {
	llm := map[string]any{}
	if opts.Model != "" {
		llm["model"] = opts.Model
	}
	if opts.Temperature != nil {
		llm["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		llm["max_tokens"] = opts.MaxTokens
	}

	return &workflow.Definition{
		Name: TurnWorkflowName,
		Nodes: []workflow.NodeDefinition{
			{
				Type:   TypeEntry,
				Params: map[string]any{"max_input_size": opts.MaxInputSize},
				Config: workflow.NodeConfig{
					ID:           "entry",
					Name:         "Entry",
					Category:     workflow.CategoryEntry,
					Next:         []string{"preset", "context"},
					InputFields:  []string{KeyCharacterID, KeyUserInput, KeyRuntimeConfig},
					OutputFields: []string{KeyCharacterID, KeyUserInput, KeyRuntimeConfig},
				},
			},
			{
				Type:   TypePreset,
				Params: map[string]any{"preset_id": opts.PresetID},
				Config: workflow.NodeConfig{
					ID:           "preset",
					Name:         "Preset",
					Category:     workflow.CategoryMiddle,
					Next:         []string{"llm"},
					InputFields:  []string{KeyCharacterID, KeyRuntimeConfig},
					OutputFields: []string{KeyCharacter, KeyPreset},
				},
			},
			{
				Type:   TypeContext,
				Params: map[string]any{"recent_turns": opts.RecentTurns},
				Config: workflow.NodeConfig{
					ID:           "context",
					Name:         "Context",
					Category:     workflow.CategoryMiddle,
					Next:         []string{"worldbook"},
					InputFields:  []string{KeyCharacterID},
					OutputFields: []string{KeyHistory, KeyHistoryText, KeyParentNodeID},
				},
			},
			{
				Type:   TypeWorldBook,
				Params: map[string]any{"window": opts.LoreWindow},
				Config: workflow.NodeConfig{
					ID:           "worldbook",
					Name:         "World book",
					Category:     workflow.CategoryMiddle,
					Next:         []string{"llm"},
					InputFields:  []string{KeyCharacterID, KeyUserInput, KeyHistory},
					OutputFields: []string{KeyLore},
				},
			},
			{
				Type:   TypeLLM,
				Params: llm,
				Config: workflow.NodeConfig{
					ID:           "llm",
					Name:         "Generation",
					Category:     workflow.CategoryMiddle,
					Next:         []string{"regex"},
					InputFields:  []string{KeyCharacter, KeyPreset, KeyUserInput, KeyHistoryText, KeyLore, KeyRuntimeConfig},
					OutputFields: []string{KeySystemPrompt, KeyUserPrompt, KeyRawResponse},
				},
			},
			{
				Type: TypeRegex,
				Config: workflow.NodeConfig{
					ID:           "regex",
					Name:         "Regex",
					Category:     workflow.CategoryMiddle,
					Next:         []string{"output"},
					InputFields:  []string{KeyCharacterID, KeyRawResponse},
					OutputFields: []string{KeyResponse, KeyRegexApplied},
				},
			},
			{
				Type: TypeOutput,
				Config: workflow.NodeConfig{
					ID:           "output",
					Name:         "Output",
					Category:     workflow.CategoryExit,
					InputFields:  []string{KeyResponse},
					OutputFields: []string{KeyScreenContent, KeyNextPrompts, KeySummary, KeyParsedContent, KeyFullResponse},
				},
			},
		},
	}
}
