/*
Package domain contains the core domain models of the taleweave engine.

It defines the persisted entities of an interactive story (dialogue trees,
world-book entries, regex scripts, characters) and the error taxonomy shared by
every other package. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - DialogueTree: The branching history of one character, a forest of DialogueNodes plus a current pointer.
  - DialogueNode: One persisted turn (user input, assistant response, summary, parsed content).
  - WorldBookEntry: A lore entry injected into prompts when its keys appear in recent conversation.
  - RegexScript: An owner-scoped find/replace rule applied to generated text.
  - LifecycleHooks: Observability callbacks fired by the workflow engine.
*/
package domain
