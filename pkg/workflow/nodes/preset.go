package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/taleweave/pkg/workflow"
)

// PresetNode loads the character and the prompt preset of the turn.
type PresetNode struct {
	workflow.BaseNode
	characters Characters
	presets    Presets
	params     struct {
		PresetID string `mapstructure:"preset_id"`
	}
}

func (n *PresetNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	return workflow.RequireFields(n.ID(), in, KeyCharacterID)
}

func (n *PresetNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	characterID := workflow.String(in, KeyCharacterID)
	char, err := n.characters.Get(ctx, characterID)
	if err != nil {
		return nil, err
	}

	rc, err := RuntimeConfig(in, KeyRuntimeConfig)
	if err != nil {
		return nil, err
	}
	presetID := rc.PresetID
	if presetID == "" {
		presetID = n.params.PresetID
	}
	p, err := n.presets.Resolve(ctx, presetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preset %q: %w", presetID, err)
	}

	nc.SetMetadata(n.ID(), "preset_id", p.ID)
	return workflow.Fields{KeyCharacter: *char, KeyPreset: p}, nil
}
