package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/taleweave/internal/presentation/graph"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/stretchr/testify/assert"
)

func TestWorkflowMermaid(t *testing.T) {
	tests := []struct {
		name     string
		configs  []workflow.NodeConfig
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Category Shapes",
			configs: []workflow.NodeConfig{
				{ID: "input", Category: workflow.CategoryEntry, Next: []string{"gen"}},
				{ID: "gen", Type: "llm", Name: "Generate", Category: workflow.CategoryMiddle, Next: []string{"out"}},
				{ID: "out", Category: workflow.CategoryExit},
			},
			contains: []string{
				`input(("input"))`,
				`gen[["Generate"]]`,
				`out(["out"])`,
				"input --> gen",
				"gen --> out",
			},
			excludes: []string{"classDef visited"},
		},
		{
			name: "Edge Labels From Input Fields",
			configs: []workflow.NodeConfig{
				{ID: "a", Category: workflow.CategoryEntry, Next: []string{"b"}},
				{ID: "b", Category: workflow.CategoryExit, InputFields: []string{"prompt", "history"}},
			},
			contains: []string{`a -- "prompt, history" --> b`},
		},
		{
			name: "Sanitized IDs And Overlay",
			configs: []workflow.NodeConfig{
				{ID: "lore-match", Category: workflow.CategoryEntry, Next: []string{"end"}},
				{ID: "end", Category: workflow.CategoryExit},
			},
			overlay: &graph.GraphOverlay{VisitedNodes: []string{"lore-match", "lore-match"}, CurrentNode: "end"},
			contains: []string{
				"lore_match --> n_end",
				"class lore_match visited;",
				"class n_end current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.WorkflowMermaid(tt.configs, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(got, "class lore_match visited;"))
			}
		})
	}
}

func TestDialogueMermaid(t *testing.T) {
	tree := &domain.DialogueTree{
		CurrentNodeID: "n3",
		Nodes: []domain.DialogueNode{
			{NodeID: "n1", ParentNodeID: domain.RootNodeID},
			{NodeID: "n2", ParentNodeID: "n1", UserInput: `say "hello" to the whole village before the sun sets`},
			{NodeID: "n3", ParentNodeID: "n1", UserInput: "wave"},
			{NodeID: "n4", ParentNodeID: "gone"},
		},
	}

	got := graph.DialogueMermaid(tree, nil)

	for _, want := range []string{
		`root(("root"))`,
		"root --> n1",
		"n1 --> n2",
		"n1 --> n3",
		`n3["n3 <br/> wave"]`,
		"class n4 orphan;",
		"class n1 visited;",
		"class n3 visited;",
		"class n3 current;",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "gone --> n4")
	assert.NotContains(t, got, "class n2 visited;")
	assert.Contains(t, got, `say 'hello' to the whole village…`)
}

func TestDialogueMermaid_ExplicitOverlay(t *testing.T) {
	tree := &domain.DialogueTree{
		CurrentNodeID: "n1",
		Nodes:         []domain.DialogueNode{{NodeID: "n1", ParentNodeID: domain.RootNodeID}},
	}
	got := graph.DialogueMermaid(tree, &graph.GraphOverlay{})
	assert.NotContains(t, got, "class n1 current;")
	assert.NotContains(t, got, "orphan")
}
