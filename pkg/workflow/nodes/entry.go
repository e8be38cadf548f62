package nodes

import (
	"context"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
)

type entryParams struct {
	MaxInputSize int `mapstructure:"max_input_size"`
}

// EntryNode checks the caller's initial data and normalizes it.
type EntryNode struct {
	workflow.BaseNode
	params entryParams
}

func (n *EntryNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	if err := workflow.RequireFields(n.ID(), in, KeyCharacterID, KeyUserInput); err != nil {
		return err
	}
	input, err := SanitizeInput(workflow.String(in, KeyUserInput), n.params.MaxInputSize)
	if err != nil {
		return &domain.ValidationError{NodeID: n.ID(), Field: KeyUserInput, Reason: err.Error()}
	}
	if strings.TrimSpace(input) == "" {
		return &domain.ValidationError{NodeID: n.ID(), Field: KeyUserInput, Reason: "user input is blank"}
	}
	if _, err := RuntimeConfig(in, KeyRuntimeConfig); err != nil {
		return &domain.ValidationError{NodeID: n.ID(), Field: KeyRuntimeConfig, Reason: err.Error()}
	}
	return nil
}

func (n *EntryNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	rc, err := RuntimeConfig(in, KeyRuntimeConfig)
	if err != nil {
		return nil, err
	}
	input, err := SanitizeInput(workflow.String(in, KeyUserInput), n.params.MaxInputSize)
	if err != nil {
		return nil, err
	}
	return workflow.Fields{
		KeyCharacterID:   workflow.String(in, KeyCharacterID),
		KeyUserInput:     strings.TrimSpace(input),
		KeyRuntimeConfig: rc,
	}, nil
}
