package domain

import (
	"errors"
	"testing"
	"time"
)

func sampleTree() *DialogueTree {
	tree := NewDialogueTree("t1", "char1", time.Unix(0, 0))
	tree.Nodes = []DialogueNode{
		{NodeID: "n1", ParentNodeID: RootNodeID},
		{NodeID: "n2", ParentNodeID: "n1"},
		{NodeID: "n3", ParentNodeID: "n2"},
		{NodeID: "alt", ParentNodeID: "n1"},
		{NodeID: "orphan", ParentNodeID: "gone"},
	}
	return tree
}

func TestDialogueTree_Path(t *testing.T) {
	tree := sampleTree()

	path, err := tree.Path("n3")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	got := ids(path)
	want := []string{"n1", "n2", "n3"}
	if !equal(got, want) {
		t.Errorf("Path(n3) = %v, want %v", got, want)
	}
	if path[0].ParentNodeID != RootNodeID {
		t.Errorf("first element parent = %q, want root", path[0].ParentNodeID)
	}

	// Re-walking the last element reproduces the same sequence.
	again, err := tree.Path(path[len(path)-1].NodeID)
	if err != nil || !equal(ids(again), want) {
		t.Errorf("re-walk = %v (%v), want %v", ids(again), err, want)
	}
}

func TestDialogueTree_Path_Root(t *testing.T) {
	path, err := sampleTree().Path(RootNodeID)
	if err != nil {
		t.Fatalf("Path(root) failed: %v", err)
	}
	if len(path) != 0 {
		t.Errorf("Path(root) = %v, want empty", ids(path))
	}
}

func TestDialogueTree_Path_Errors(t *testing.T) {
	tree := sampleTree()

	if _, err := tree.Path("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Path(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := tree.Path("orphan"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Path(orphan) err = %v, want ErrNotFound", err)
	}

	tree.Nodes = append(tree.Nodes,
		DialogueNode{NodeID: "c1", ParentNodeID: "c2"},
		DialogueNode{NodeID: "c2", ParentNodeID: "c1"},
	)
	if _, err := tree.Path("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Path(cycle) err = %v, want ErrNotFound", err)
	}
}

func TestDialogueTree_Descendants(t *testing.T) {
	got := sampleTree().Descendants("n1")
	want := []string{"n2", "alt", "n3"}
	if !equal(got, want) {
		t.Errorf("Descendants(n1) = %v, want %v", got, want)
	}
}

func TestDialogueTree_NearestSurvivingAncestor(t *testing.T) {
	tree := sampleTree()
	removed := map[string]DialogueNode{
		"n2": tree.Nodes[1],
		"n3": tree.Nodes[2],
	}
	tree.Nodes = []DialogueNode{tree.Nodes[0], tree.Nodes[3]}

	if got := tree.NearestSurvivingAncestor("n3", removed); got != "n1" {
		t.Errorf("NearestSurvivingAncestor(n3) = %q, want n1", got)
	}
	if got := tree.NearestSurvivingAncestor("unknown", removed); got != RootNodeID {
		t.Errorf("NearestSurvivingAncestor(unknown) = %q, want root", got)
	}
}

func TestWorldBookEntry_Bucket(t *testing.T) {
	pos := func(v int) *int { return &v }
	tests := []struct {
		name  string
		entry WorldBookEntry
		want  int
	}{
		{"missing", WorldBookEntry{}, PositionDefault},
		{"valid", WorldBookEntry{Position: pos(1)}, 1},
		{"negative", WorldBookEntry{Position: pos(-1)}, PositionDefault},
		{"too large", WorldBookEntry{Position: pos(7)}, PositionDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Bucket(); got != tt.want {
				t.Errorf("Bucket() = %d, want %d", got, tt.want)
			}
		})
	}
}

func ids(nodes []DialogueNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.NodeID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
