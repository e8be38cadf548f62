package nodes

import (
	"context"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/aretw0/taleweave/pkg/worldbook"
)

// WorldBookNode selects the lore triggered by the message and recent history
// and renders it per injection bucket.
type WorldBookNode struct {
	workflow.BaseNode
	books  WorldBooks
	params struct {
		Window int `mapstructure:"window"`
	}
}

func (n *WorldBookNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	return workflow.RequireFields(n.ID(), in, KeyCharacterID, KeyUserInput)
}

func (n *WorldBookNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	entries, err := n.books.List(ctx, workflow.String(in, KeyCharacterID))
	if err != nil {
		return nil, err
	}

	matched := worldbook.Match(entries, workflow.String(in, KeyUserInput), Messages(in, KeyHistory), n.params.Window)
	buckets := worldbook.Bucket(matched)

	lore := make([]string, domain.PositionCount)
	for i, b := range buckets {
		lore[i] = worldbook.Render(b)
	}

	nc.SetMetadata(n.ID(), "matched", len(matched))
	return workflow.Fields{KeyLore: lore}, nil
}
