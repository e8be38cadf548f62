/*
Package workflow implements the per-turn dataflow engine.

A workflow is a directed acyclic graph of nodes declared by NodeConfig. The
Engine walks it from the single entry node, hands every node the subset of the
shared data bag it declared as input (after applying its input mapping), and
merges back only the output fields the node declared. A failing node aborts
the whole run and nothing it produced reaches the bag.

Nodes are constructed per run through a Registry that maps a type name to a
constructor, so a Workflow can be built once at process start and executed for
every turn with fresh node instances.
*/
package workflow
