package nodes

import (
	"context"
	"errors"

	"github.com/aretw0/taleweave/pkg/dialogue"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
)

// ContextNode gathers the conversation history along the current path.
type ContextNode struct {
	workflow.BaseNode
	trees  Trees
	params struct {
		RecentTurns int `mapstructure:"recent_turns"`
	}
}

func (n *ContextNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	return workflow.RequireFields(n.ID(), in, KeyCharacterID)
}

func (n *ContextNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	var path []domain.DialogueNode
	parent := domain.RootNodeID

	tree, err := n.trees.GetTree(ctx, workflow.String(in, KeyCharacterID))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// First turn: no history yet.
	case err != nil:
		return nil, err
	default:
		path, err = tree.Path(tree.CurrentNodeID)
		if err != nil {
			return nil, err
		}
		parent = tree.CurrentNodeID
	}

	window := dialogue.SplitHistory(path, n.params.RecentTurns)
	msgs := window.Messages()
	for _, m := range msgs {
		nc.AddMessage(m.Role, m.Content)
	}
	nc.SetMetadata(n.ID(), "turns", len(path))

	return workflow.Fields{
		KeyHistory:      msgs,
		KeyHistoryText:  window.Transcript(),
		KeyParentNodeID: parent,
	}, nil
}

// Messages reads a message log carried under key.
func Messages(in workflow.Fields, key string) []domain.Message {
	msgs, _ := in[key].([]domain.Message)
	return msgs
}
