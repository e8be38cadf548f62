package domain

import (
	"fmt"
	"time"
)

// RootNodeID is the virtual parent of every top-level dialogue node.
// It never exists as a real node in a tree.
const RootNodeID = "root"

// DialogueNode is one persisted turn in a character's conversation.
type DialogueNode struct {
	NodeID            string         `json:"node_id"`
	ParentNodeID      string         `json:"parent_node_id"`
	BranchID          int            `json:"branch_id"`
	UserInput         string         `json:"user_input"`
	AssistantResponse string         `json:"assistant_response"`
	FullResponse      string         `json:"full_response,omitempty"`
	ResponseSummary   string         `json:"response_summary"`
	ParsedContent     map[string]any `json:"parsed_content"`
	CreatedAt         time.Time      `json:"created_at"`
}

// DialogueTree is the branching history of a single character.
// Nodes are stored flat; structure is carried by ParentNodeID.
type DialogueTree struct {
	ID              string         `json:"id"`
	CharacterID     string         `json:"character_id"`
	CurrentNodeID   string         `json:"current_node_id"`
	CurrentBranchID int            `json:"current_branch_id"`
	Nodes           []DialogueNode `json:"nodes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewDialogueTree allocates an empty tree pointing at the root sentinel.
func NewDialogueTree(id, characterID string, now time.Time) *DialogueTree {
	return &DialogueTree{
		ID:              id,
		CharacterID:     characterID,
		CurrentNodeID:   RootNodeID,
		CurrentBranchID: 0,
		Nodes:           []DialogueNode{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Index returns the position of nodeID in Nodes, or -1.
func (t *DialogueTree) Index(nodeID string) int {
	for i := range t.Nodes {
		if t.Nodes[i].NodeID == nodeID {
			return i
		}
	}
	return -1
}

// Find returns a pointer to the node with the given id, or nil.
func (t *DialogueTree) Find(nodeID string) *DialogueNode {
	if i := t.Index(nodeID); i >= 0 {
		return &t.Nodes[i]
	}
	return nil
}

// Has reports whether nodeID names a real node in the tree.
func (t *DialogueTree) Has(nodeID string) bool {
	return t.Index(nodeID) >= 0
}

// Children returns the direct children of parentID in storage order.
func (t *DialogueTree) Children(parentID string) []DialogueNode {
	var out []DialogueNode
	for _, n := range t.Nodes {
		if n.ParentNodeID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// Descendants returns the ids of every node below nodeID (excluding nodeID).
func (t *DialogueTree) Descendants(nodeID string) []string {
	byParent := make(map[string][]string, len(t.Nodes))
	for _, n := range t.Nodes {
		byParent[n.ParentNodeID] = append(byParent[n.ParentNodeID], n.NodeID)
	}

	var out []string
	seen := map[string]bool{nodeID: true}
	queue := append([]string(nil), byParent[nodeID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, byParent[id]...)
	}
	return out
}

// Path walks parent pointers from nodeID up to the root sentinel and returns
// the nodes root-first. It fails with ErrNotFound when nodeID, or any
// ancestor on the way up, is missing, and when the walk revisits a node.
func (t *DialogueTree) Path(nodeID string) ([]DialogueNode, error) {
	if nodeID == RootNodeID {
		return []DialogueNode{}, nil
	}

	index := make(map[string]int, len(t.Nodes))
	for i, n := range t.Nodes {
		index[n.NodeID] = i
	}

	var reversed []DialogueNode
	visited := make(map[string]bool)
	current := nodeID
	for current != RootNodeID {
		if visited[current] {
			return nil, fmt.Errorf("cycle detected at node %q: %w", current, ErrNotFound)
		}
		visited[current] = true

		i, ok := index[current]
		if !ok {
			if current == nodeID {
				return nil, fmt.Errorf("node %q: %w", nodeID, ErrNotFound)
			}
			return nil, fmt.Errorf("node %q is unreachable (missing ancestor %q): %w", nodeID, current, ErrNotFound)
		}
		reversed = append(reversed, t.Nodes[i])
		current = t.Nodes[i].ParentNodeID
	}

	path := make([]DialogueNode, len(reversed))
	for i, n := range reversed {
		path[len(reversed)-1-i] = n
	}
	return path, nil
}

// NearestSurvivingAncestor walks up from nodeID until it finds an id that is
// still present in the tree, returning RootNodeID if none is.
// The walk uses the parent pointers recorded in removed, which holds nodes that
// no longer appear in t.Nodes.
func (t *DialogueTree) NearestSurvivingAncestor(nodeID string, removed map[string]DialogueNode) string {
	visited := make(map[string]bool)
	current := nodeID
	for current != RootNodeID && !visited[current] {
		visited[current] = true
		if t.Has(current) {
			return current
		}
		gone, ok := removed[current]
		if !ok {
			return RootNodeID
		}
		current = gone.ParentNodeID
	}
	return RootNodeID
}
