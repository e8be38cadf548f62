package workflow_test

import (
	"testing"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg(id string, cat workflow.Category, next ...string) workflow.NodeConfig {
	return workflow.NodeConfig{ID: id, Category: cat, Next: next}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		configs []workflow.NodeConfig
		field   string
	}{
		{
			name:    "no entry",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryMiddle, "b"), cfg("b", workflow.CategoryExit)},
			field:   "category",
		},
		{
			name:    "two entries",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "c"), cfg("b", workflow.CategoryEntry, "c"), cfg("c", workflow.CategoryExit)},
			field:   "category",
		},
		{
			name:    "missing successor",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "ghost")},
			field:   "next",
		},
		{
			name:    "no exit",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "b"), cfg("b", workflow.CategoryMiddle)},
			field:   "category",
		},
		{
			name: "cycle",
			configs: []workflow.NodeConfig{
				cfg("a", workflow.CategoryEntry, "b"),
				cfg("b", workflow.CategoryMiddle, "c"),
				cfg("c", workflow.CategoryMiddle, "b", "d"),
				cfg("d", workflow.CategoryExit),
			},
			field: "next",
		},
		{
			name:    "unreachable",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "b"), cfg("b", workflow.CategoryExit), cfg("island", workflow.CategoryExit)},
			field:   "next",
		},
		{
			name:    "exit with successor",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "b"), cfg("b", workflow.CategoryExit, "c"), cfg("c", workflow.CategoryExit)},
			field:   "next",
		},
		{
			name:    "duplicate id",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "b"), cfg("b", workflow.CategoryExit), cfg("b", workflow.CategoryExit)},
			field:   "id",
		},
		{
			name: "two bag keys mapped to one input",
			configs: []workflow.NodeConfig{
				cfg("a", workflow.CategoryEntry, "b"),
				{ID: "b", Category: workflow.CategoryExit, InputMapping: map[string]string{"x": "in", "y": "in"}},
			},
			field: "input_mapping",
		},
		{
			name:    "back edge to entry",
			configs: []workflow.NodeConfig{cfg("a", workflow.CategoryEntry, "b"), cfg("b", workflow.CategoryMiddle, "a", "c"), cfg("c", workflow.CategoryExit)},
			field:   "next",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := workflow.ValidateGraph(tt.configs)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateGraph_InitialDataAndOrder(t *testing.T) {
	entry := cfg("entry", workflow.CategoryEntry, "b", "c")
	entry.InputFields = []string{"character_id"}
	b := cfg("b", workflow.CategoryMiddle, "d")
	b.InputFields = []string{"character_id"}
	b.OutputFields = []string{"prompt"}
	c := cfg("c", workflow.CategoryMiddle, "d")
	c.InputFields = []string{"id"}
	c.InputMapping = map[string]string{"character_id": "id"}
	d := cfg("d", workflow.CategoryExit)
	d.InputFields = []string{"prompt"}

	g, err := workflow.ValidateGraph([]workflow.NodeConfig{d, c, b, entry})
	require.NoError(t, err)
	assert.Equal(t, "entry", g.Entry)
	assert.Equal(t, []string{"entry", "b", "c", "d"}, g.Order)
	assert.Equal(t, []string{"b", "c"}, g.Predecessors("d"))
}

func TestValidateGraph_SiblingOutputIsNotUpstream(t *testing.T) {
	entry := cfg("entry", workflow.CategoryEntry, "b", "c")
	b := cfg("b", workflow.CategoryMiddle, "d")
	b.OutputFields = []string{"lore"}
	c := cfg("c", workflow.CategoryMiddle, "d")
	c.InputFields = []string{"lore"}
	d := cfg("d", workflow.CategoryExit)

	_, err := workflow.ValidateGraph([]workflow.NodeConfig{entry, b, c, d})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "c", verr.NodeID)
}
