package nodes

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/aretw0/taleweave/pkg/preset"
	"github.com/aretw0/taleweave/pkg/workflow"
)

// LLMNode renders the preset and calls the generator.
type LLMNode struct {
	workflow.BaseNode
	generator ports.Generator
	// params are defaults for fields the caller's runtime config leaves unset.
	params struct {
		Model       string   `mapstructure:"model"`
		Temperature *float64 `mapstructure:"temperature"`
		MaxTokens   int      `mapstructure:"max_tokens"`
		TopP        *float64 `mapstructure:"top_p"`
	}
}

func (n *LLMNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	if err := workflow.RequireFields(n.ID(), in, KeyCharacter, KeyPreset, KeyUserInput); err != nil {
		return err
	}
	if _, ok := in[KeyCharacter].(domain.Character); !ok {
		return &domain.ValidationError{NodeID: n.ID(), Field: KeyCharacter, Reason: "not a character"}
	}
	if _, ok := in[KeyPreset].(domain.Preset); !ok {
		return &domain.ValidationError{NodeID: n.ID(), Field: KeyPreset, Reason: "not a preset"}
	}
	return nil
}

func (n *LLMNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	char := in[KeyCharacter].(domain.Character)
	p := in[KeyPreset].(domain.Preset)

	rc, err := RuntimeConfig(in, KeyRuntimeConfig)
	if err != nil {
		return nil, err
	}
	rc = n.withDefaults(rc)

	vars := preset.CharacterVars(char, rc.UserName)
	vars.Input = workflow.String(in, KeyUserInput)
	vars.History = workflow.String(in, KeyHistoryText)
	if lore, ok := in[KeyLore].([]string); ok {
		copy(vars.Lore[:], lore)
	}
	system, user := preset.Render(p, vars)

	nc.AddMessage(domain.RoleSystem, system)
	nc.AddMessage(domain.RoleUser, user)

	raw, err := n.generator.Generate(ctx, system, user, rc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("generator returned an empty response")
	}

	nc.AddMessage(domain.RoleAssistant, raw)
	if rc.Model != "" {
		nc.SetMetadata(n.ID(), "model", rc.Model)
	}
	return workflow.Fields{
		KeySystemPrompt: system,
		KeyUserPrompt:   user,
		KeyRawResponse:  raw,
	}, nil
}

func (n *LLMNode) withDefaults(rc domain.RuntimeConfig) domain.RuntimeConfig {
	if rc.Model == "" {
		rc.Model = n.params.Model
	}
	if rc.Temperature == nil {
		rc.Temperature = n.params.Temperature
	}
	if rc.MaxTokens == 0 {
		rc.MaxTokens = n.params.MaxTokens
	}
	if rc.TopP == nil {
		rc.TopP = n.params.TopP
	}
	return rc
}
