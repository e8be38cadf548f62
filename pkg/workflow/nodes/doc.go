// Package nodes holds the workflow steps of a story turn and the default
// turn graph that wires them:
//
//	entry ─┬─ preset ──────────────┐
//	       └─ context ─ worldbook ─┴─ llm ─ regex ─ output
//
// Register binds every node type to a Registry with its dependencies captured
// in the constructors. TurnDefinition returns the default graph, which can be
// serialized, edited and rebuilt with workflow.ParseDefinition.
package nodes
