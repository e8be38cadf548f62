package workflow

import (
	"fmt"
	"sort"

	"github.com/aretw0/taleweave/pkg/domain"
)

// Graph is a validated set of node configs.
type Graph struct {
	Entry string
	Order []string // topological order from Entry; ties follow Next order
	nodes map[string]NodeConfig
	preds map[string][]string
}

// Node returns the config of id.
func (g *Graph) Node(id string) (NodeConfig, bool) {
	c, ok := g.nodes[id]
	return c, ok
}

// Predecessors returns the ids of nodes that list id in Next.
func (g *Graph) Predecessors(id string) []string {
	return g.preds[id]
}

func graphError(nodeID, field, format string, args ...any) error {
	return &domain.ValidationError{NodeID: nodeID, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateGraph checks the structural invariants of a workflow:
// unique ids, one bag key per mapped input, exactly one entry node, every
// Next target exists, no cycles, every node reachable from the entry, at
// least one exit node, exit nodes have no successors, and every input field of a non-entry node is produced by a
// transitive upstream node or supplied as initial data on the entry node.
func ValidateGraph(configs []NodeConfig) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]NodeConfig, len(configs)),
		preds: make(map[string][]string, len(configs)),
	}

	var entries []string
	for _, c := range configs {
		if c.ID == "" {
			return nil, graphError("", "id", "node id is empty")
		}
		if _, dup := g.nodes[c.ID]; dup {
			return nil, graphError(c.ID, "id", "duplicate node id")
		}
		switch c.Category {
		case CategoryEntry:
			entries = append(entries, c.ID)
		case CategoryMiddle, CategoryExit:
		default:
			return nil, graphError(c.ID, "category", "unknown category %q", c.Category)
		}
		if err := checkMapping(c); err != nil {
			return nil, err
		}
		g.nodes[c.ID] = c
	}

	if len(entries) != 1 {
		sort.Strings(entries)
		return nil, graphError("", "category", "workflow needs exactly one entry node, found %d %v", len(entries), entries)
	}
	g.Entry = entries[0]

	indegree := make(map[string]int, len(configs))
	for _, c := range configs {
		if c.Category == CategoryExit && len(c.Next) > 0 {
			return nil, graphError(c.ID, "next", "exit node cannot have successors")
		}
		seen := make(map[string]bool, len(c.Next))
		for _, next := range c.Next {
			if _, ok := g.nodes[next]; !ok {
				return nil, graphError(c.ID, "next", "successor %q does not exist", next)
			}
			if next == g.Entry {
				return nil, graphError(c.ID, "next", "entry node %q cannot be a successor", next)
			}
			if seen[next] {
				return nil, graphError(c.ID, "next", "successor %q listed twice", next)
			}
			seen[next] = true
			indegree[next]++
			g.preds[next] = append(g.preds[next], c.ID)
		}
	}

	// Kahn's algorithm; successors are released in their listed order.
	queue := []string{g.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		g.Order = append(g.Order, id)
		for _, next := range g.nodes[id].Next {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(g.Order) != len(configs) {
		done := make(map[string]bool, len(g.Order))
		for _, id := range g.Order {
			done[id] = true
		}
		var stuck []string
		for _, c := range configs {
			if !done[c.ID] {
				stuck = append(stuck, c.ID)
			}
		}
		return nil, graphError(stuck[0], "next", "nodes are unreachable from entry or part of a cycle: %v", stuck)
	}

	hasExit := false
	for _, id := range g.Order {
		if g.nodes[id].Category == CategoryExit {
			hasExit = true
			break
		}
	}
	if !hasExit {
		return nil, graphError("", "category", "no exit node is reachable from entry %q", g.Entry)
	}

	if err := g.checkDataflow(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkDataflow verifies that every input field can be supplied.
func (g *Graph) checkDataflow() error {
	initial := make(map[string]bool)
	for _, f := range g.nodes[g.Entry].InputFields {
		initial[f] = true
	}

	// available[id] = keys produced by id's transitive upstream nodes.
	available := make(map[string]map[string]bool, len(g.Order))
	for _, id := range g.Order {
		avail := make(map[string]bool)
		for _, p := range g.preds[id] {
			for k := range available[p] {
				avail[k] = true
			}
			for _, out := range g.nodes[p].OutputFields {
				avail[out] = true
			}
		}
		available[id] = avail

		if id == g.Entry {
			continue
		}
		cfg := g.nodes[id]
		for _, field := range cfg.InputFields {
			key := cfg.bagKey(field)
			if !avail[key] && !initial[key] {
				return graphError(id, field, "input %q is not produced by any upstream node", key)
			}
		}
	}
	return nil
}

// checkMapping rejects two bag keys feeding the same input field.
func checkMapping(c NodeConfig) error {
	sources := make(map[string]string, len(c.InputMapping))
	for from, to := range c.InputMapping {
		if other, dup := sources[to]; dup {
			a, b := other, from
			if b < a {
				a, b = b, a
			}
			return graphError(c.ID, "input_mapping", "input %q is mapped from both %q and %q", to, a, b)
		}
		sources[to] = from
	}
	return nil
}
