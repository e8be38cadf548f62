package taleweave

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/taleweave/pkg/dialogue"
	"github.com/aretw0/taleweave/pkg/domain"
)

// ContentRenderer transforms screen content before it is written, e.g.
// markdown to ANSI, without coupling the core package to a terminal library.
type ContentRenderer func(string) (string, error)

// Runner drives a line-based chat loop over an Engine.
//
// Lines are user messages except for the commands:
//
//	/path                 show the current path
//	/switch <node>        make <node> current ("root" allowed)
//	/delete <node> [cascade]
//	/edit <node> <text>   replace the text of a node
//	/quit                 leave (also "exit", "quit" or EOF)
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer
	Config   domain.RuntimeConfig
	// Headless suppresses the banner and prompt marker.
	Headless bool
}

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run chats with characterID until the input ends or the user quits. The
// dialogue is initialized first when the character has none.
func (r *Runner) Run(ctx context.Context, engine *Engine, characterID string) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	if _, err := engine.InitializeDialogue(ctx, characterID, r.Config); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("failed to initialize dialogue: %w", err)
	}
	if !r.Headless {
		fmt.Fprintf(r.Output, "--- taleweave: %s ---\n", characterID)
	}

	path, err := engine.Path(ctx, characterID)
	if err != nil {
		return err
	}
	if len(path) > 0 {
		r.show(path[len(path)-1].AssistantResponse, nil)
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		input := strings.TrimSpace(text)
		switch {
		case input == "":
		case input == "exit" || input == "quit" || input == "/quit":
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		case strings.HasPrefix(input, "/"):
			if err := r.command(ctx, engine, characterID, input); err != nil {
				fmt.Fprintf(r.Output, "error: %v\n", err)
			}
		default:
			turn, err := engine.RunTurn(ctx, characterID, input, r.Config, "")
			if err != nil {
				fmt.Fprintf(r.Output, "error: %v\n", err)
				break
			}
			r.show(turn.ScreenContent, turn.NextPrompts)
		}

		if eof {
			return nil
		}
	}
}

func (r *Runner) command(ctx context.Context, engine *Engine, characterID, input string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/path":
		path, err := engine.Path(ctx, characterID)
		if err != nil {
			return err
		}
		r.printPath(path)
	case "/switch":
		if len(fields) != 2 {
			return errors.New("usage: /switch <node>")
		}
		path, err := engine.SwitchBranch(ctx, characterID, fields[1])
		if err != nil {
			return err
		}
		r.printPath(path)
	case "/delete":
		if len(fields) < 2 || len(fields) > 3 {
			return errors.New("usage: /delete <node> [orphan|cascade]")
		}
		policy := dialogue.DeleteOrphan
		if len(fields) == 3 {
			p, err := dialogue.ParseDeletePolicy(fields[2])
			if err != nil {
				return err
			}
			policy = p
		}
		path, err := engine.DeleteNode(ctx, characterID, fields[1], policy)
		if err != nil {
			return err
		}
		r.printPath(path)
	case "/edit":
		if len(fields) < 3 {
			return errors.New("usage: /edit <node> <text>")
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(input, "/edit"), " "+fields[1]))
		node, err := engine.EditNode(ctx, characterID, fields[1], text)
		if err != nil {
			return err
		}
		r.show(node.AssistantResponse, nil)
	default:
		return fmt.Errorf("unknown command %s", fields[0])
	}
	return nil
}

func (r *Runner) show(content string, prompts []string) {
	output := content
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
	for i, p := range prompts {
		fmt.Fprintf(r.Output, "  %d) %s\n", i+1, p)
	}
}

func (r *Runner) printPath(path []domain.DialogueNode) {
	if len(path) == 0 {
		fmt.Fprintln(r.Output, "(root)")
		return
	}
	for _, n := range path {
		fmt.Fprintf(r.Output, "[%s] %s\n", n.NodeID, firstLine(n.AssistantResponse))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
