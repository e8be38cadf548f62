package nodes

import (
	"context"

	"github.com/aretw0/taleweave/pkg/workflow"
)

// RegexNode runs the character's (or a configured owner's) scripts over the
// generated text.
type RegexNode struct {
	workflow.BaseNode
	pipeline TextProcessor
	params   struct {
		Owner string `mapstructure:"owner"`
	}
}

func (n *RegexNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	return workflow.RequireFields(n.ID(), in, KeyCharacterID, KeyRawResponse)
}

func (n *RegexNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	owner := n.params.Owner
	if owner == "" {
		owner = workflow.String(in, KeyCharacterID)
	}

	res, err := n.pipeline.Process(ctx, workflow.String(in, KeyRawResponse), owner)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Error()
		}
		nc.SetMetadata(n.ID(), "pattern_errors", msgs)
	}
	return workflow.Fields{KeyResponse: res.Final, KeyRegexApplied: res.Applied}, nil
}
