package graph

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
)

// labelLimit bounds the characters of user text shown on a tree node.
const labelLimit = 32

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// WorkflowMermaid produces a Mermaid flowchart of a workflow graph.
// It applies semantic styling:
// - Entry: ((Circle))
// - Exit: ([Stadium])
// - Generation (llm): [[Subroutine]]
// - Default: [Rectangle]
// Edges are labeled with the fields the target reads.
func WorkflowMermaid(configs []workflow.NodeConfig, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	byID := make(map[string]workflow.NodeConfig, len(configs))
	for _, c := range configs {
		byID[c.ID] = c
	}

	for _, c := range configs {
		safeID := sanitizeMermaidID(c.ID)

		opener, closer := "[", "]"
		switch {
		case c.Category == workflow.CategoryEntry:
			opener, closer = "((", "))"
		case c.Category == workflow.CategoryExit:
			opener, closer = "([", "])"
		case c.Type == "llm":
			opener, closer = "[[", "]]"
		}

		name := c.Name
		if name == "" {
			name = c.ID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(name), closer)

		for _, next := range c.Next {
			arrow := "-->"
			if target, ok := byID[next]; ok && len(target.InputFields) > 0 {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(strings.Join(target.InputFields, ", ")))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next))
		}
	}

	writeOverlay(&sb, overlay)
	return sb.String()
}

// DialogueMermaid produces a Mermaid flowchart of a dialogue tree. Nodes that
// no longer reach the root are drawn dashed. When overlay is nil, the path
// to the tree's current node is highlighted.
func DialogueMermaid(tree *domain.DialogueTree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	rootID := sanitizeMermaidID(domain.RootNodeID)
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", rootID, domain.RootNodeID)

	if overlay == nil {
		overlay = &GraphOverlay{CurrentNode: tree.CurrentNodeID}
		if path, err := tree.Path(tree.CurrentNodeID); err == nil {
			for _, n := range path {
				overlay.VisitedNodes = append(overlay.VisitedNodes, n.NodeID)
			}
		}
	}

	var orphans []string
	for _, n := range tree.Nodes {
		safeID := sanitizeMermaidID(n.NodeID)
		label := n.NodeID
		if text := truncate(n.UserInput, labelLimit); text != "" {
			label += " <br/> " + text
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, escape(label))

		parent := n.ParentNodeID
		if parent != domain.RootNodeID && !tree.Has(parent) {
			orphans = append(orphans, safeID)
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(parent), safeID)
	}
	if len(orphans) > 0 {
		sb.WriteString("    classDef orphan stroke-dasharray:5 5,color:#888;\n")
		for _, id := range orphans {
			fmt.Fprintf(&sb, "    class %s orphan;\n", id)
		}
	}

	writeOverlay(&sb, overlay)
	return sb.String()
}

func writeOverlay(sb *strings.Builder, overlay *GraphOverlay) {
	if overlay == nil {
		return
	}
	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	visitedSet := make(map[string]bool)
	for _, id := range overlay.VisitedNodes {
		safeID := sanitizeMermaidID(id)
		if !visitedSet[safeID] && safeID != "" {
			visitedSet[safeID] = true
			fmt.Fprintf(sb, "    class %s visited;\n", safeID)
		}
	}

	if overlay.CurrentNode != "" {
		fmt.Fprintf(sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
	}
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "end" || s == "graph" {
		// Reserved words in Mermaid.
		s = "n_" + s
	}
	return s
}
