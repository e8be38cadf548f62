// Package dialogue persists one branching DialogueTree per character and
// implements its mutations: insertion, branch switching, pruning and edits.
package dialogue
