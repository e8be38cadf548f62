/*
Package taleweave is an interactive-storytelling engine. It turns a user
message plus character and world metadata into one generated narrative turn,
then persists that turn in a branching conversation history.

# Concept

Each turn runs a small dataflow workflow (see pkg/workflow and
pkg/workflow/nodes): the preset and character are loaded, the active path of
the dialogue tree is windowed into history, world-book lore triggered by the
conversation is injected, the generator is called, regex scripts reshape the
text and the output node extracts the screen content, summary and suggested
next prompts. The result is appended to the character's dialogue tree
(pkg/dialogue), where any earlier turn can become the current one again to
start a new branch.

All state lives in a ports.KVStore: in memory, on disk, in Redis or in
PostgreSQL, optionally encrypted at rest.

# Usage

	eng, err := taleweave.New(memory.NewStore(), taleweave.WithGenerator(llm.EchoGenerator{}))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.Characters.Save(ctx, domain.Character{ID: "mira", Name: "Mira", FirstMessage: "Halt! Who goes there?"}); err != nil {
		log.Fatal(err)
	}
	if _, err := eng.InitializeDialogue(ctx, "mira", domain.RuntimeConfig{}); err != nil {
		log.Fatal(err)
	}

	turn, err := eng.RunTurn(ctx, "mira", "A friend.", domain.RuntimeConfig{}, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(turn.ScreenContent, turn.NextPrompts)
*/
package taleweave
