package taleweave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/character"
	"github.com/aretw0/taleweave/pkg/dialogue"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/aretw0/taleweave/pkg/preset"
	"github.com/aretw0/taleweave/pkg/regex"
	"github.com/aretw0/taleweave/pkg/session"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/aretw0/taleweave/pkg/workflow/nodes"
	"github.com/aretw0/taleweave/pkg/worldbook"
)

// OpeningInput is the user input recorded when a dialogue has to be opened
// by generation because the character has no first message.
const OpeningInput = "Begin the story."

// Engine is the high-level entry point of the library. It owns the services
// over one KV store and runs story turns through the turn workflow.
type Engine struct {
	sessions *session.Manager

	Characters *character.Service
	Presets    *preset.Service
	Dialogue   *dialogue.Service
	WorldBooks *worldbook.Service
	Regex      *regex.Service

	pipeline   *regex.Pipeline
	workflow   *workflow.Workflow
	definition *workflow.Definition
	generator  ports.Generator
	locker     ports.DistributedLocker
	hooks      domain.LifecycleHooks
	turnOpts   nodes.TurnOptions
	summaries  bool
	logger     *slog.Logger

	background sync.WaitGroup
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGenerator sets the text generator. Required.
func WithGenerator(g ports.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithLogger sets a custom structured logger for the engine and its services.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every workflow node.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLocker serializes writes across processes sharing the store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithTurnOptions tunes the default turn workflow.
func WithTurnOptions(opts nodes.TurnOptions) Option {
	return func(e *Engine) {
		e.turnOpts = opts
	}
}

// WithWorkflowDefinition replaces the default turn workflow. The graph must
// produce the outputs of the default output node.
func WithWorkflowDefinition(def *workflow.Definition) Option {
	return func(e *Engine) {
		e.definition = def
	}
}

// WithSummaryRefresh toggles the background summary pass run after each turn
// (enabled by default).
func WithSummaryRefresh(enabled bool) Option {
	return func(e *Engine) {
		e.summaries = enabled
	}
}

// New wires the services over store and builds the turn workflow.
func New(store ports.KVStore, opts ...Option) (*Engine, error) {
	e := &Engine{summaries: true}
	for _, opt := range opts {
		opt(e)
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if e.generator == nil {
		return nil, errors.New("generator is required")
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(store, sessionOpts...)

	e.Characters = character.NewService(e.sessions)
	e.Presets = preset.NewService(e.sessions)
	e.Dialogue = dialogue.NewService(e.sessions, dialogue.WithLogger(e.logger))
	e.WorldBooks = worldbook.NewService(e.sessions)
	e.Regex = regex.NewService(e.sessions)
	e.pipeline = regex.NewPipeline(e.Regex, regex.WithLogger(e.logger))

	registry := workflow.NewRegistry()
	nodes.Register(registry, nodes.Deps{
		Characters: e.Characters,
		Presets:    e.Presets,
		Trees:      e.Dialogue,
		WorldBooks: e.WorldBooks,
		Generator:  e.generator,
		Regex:      e.pipeline,
	})

	if e.definition == nil {
		e.definition = nodes.TurnDefinition(e.turnOpts)
	}
	wf, err := e.definition.Build(registry,
		workflow.WithLogger(e.logger),
		workflow.WithLifecycleHooks(e.hooks),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build turn workflow: %w", err)
	}
	e.workflow = wf
	return e, nil
}

// Workflow returns the turn workflow.
func (e *Engine) Workflow() *workflow.Workflow {
	return e.workflow
}

// Pipeline returns the regex pipeline.
func (e *Engine) Pipeline() *regex.Pipeline {
	return e.pipeline
}

// TurnResult is what a turn shows to the user.
type TurnResult struct {
	NodeID        string   `json:"node_id"`
	ParentNodeID  string   `json:"parent_node_id"`
	ScreenContent string   `json:"screen_content"`
	NextPrompts   []string `json:"next_prompts"`
}

// InitializeDialogue opens a character's dialogue and returns the id of the
// first turn. The first message becomes the first turn and each alternate
// greeting a sibling branch that does not move the current pointer. Without
// a first message the opening is generated. It fails with
// domain.ErrAlreadyExists when the dialogue already has turns.
func (e *Engine) InitializeDialogue(ctx context.Context, characterID string, rc domain.RuntimeConfig) (string, error) {
	char, err := e.Characters.Get(ctx, characterID)
	if err != nil {
		return "", err
	}

	tree, err := e.Dialogue.GetTree(ctx, characterID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if _, err := e.Dialogue.CreateTree(ctx, characterID); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	case len(tree.Nodes) > 0:
		return "", fmt.Errorf("dialogue for character %q: %w", characterID, domain.ErrAlreadyExists)
	}

	vars := preset.CharacterVars(*char, rc.UserName)
	expand := strings.NewReplacer("{{char}}", vars.Char, "{{user}}", vars.User)

	if strings.TrimSpace(char.FirstMessage) == "" {
		res, err := e.RunTurn(ctx, characterID, OpeningInput, rc, "")
		if err != nil {
			return "", err
		}
		return res.NodeID, nil
	}

	first, err := e.addGreeting(ctx, characterID, expand.Replace(char.FirstMessage), dialogue.AdvanceAlways)
	if err != nil {
		return "", err
	}
	for _, alt := range char.AlternateGreetings {
		if strings.TrimSpace(alt) == "" {
			continue
		}
		if _, err := e.addGreeting(ctx, characterID, expand.Replace(alt), dialogue.AdvanceNever); err != nil {
			return "", err
		}
	}
	return first.NodeID, nil
}

func (e *Engine) addGreeting(ctx context.Context, characterID, text string, advance dialogue.AdvancePolicy) (*domain.DialogueNode, error) {
	return e.Dialogue.AddNode(ctx, characterID, dialogue.AddNodeParams{
		ParentNodeID:      domain.RootNodeID,
		AssistantResponse: text,
		FullResponse:      text,
		Summary:           text,
		ParsedContent:     map[string]any{nodes.TagScreen: text, nodes.TagNextPrompts: []string{}},
		AdvanceCurrent:    advance,
	})
}

// RunTurn runs one turn and appends it below the current node. nodeID names
// the new node; empty means generated.
func (e *Engine) RunTurn(ctx context.Context, characterID, userMessage string, rc domain.RuntimeConfig, nodeID string) (*TurnResult, error) {
	res, err := e.workflow.Execute(ctx, map[string]any{
		nodes.KeyCharacterID:   characterID,
		nodes.KeyUserInput:     userMessage,
		nodes.KeyRuntimeConfig: rc,
	})
	if err != nil {
		return nil, err
	}

	screen, _ := res.Output[nodes.KeyScreenContent].(string)
	prompts, _ := res.Output[nodes.KeyNextPrompts].([]string)
	summary, _ := res.Output[nodes.KeySummary].(string)
	full, _ := res.Output[nodes.KeyFullResponse].(string)
	parsed, _ := res.Output[nodes.KeyParsedContent].(map[string]any)
	parent, _ := res.Bag[nodes.KeyParentNodeID].(string)
	if parent == "" {
		parent = domain.RootNodeID
	}
	input, _ := res.Bag[nodes.KeyUserInput].(string)
	if input == "" {
		input = userMessage
	}

	node, err := e.Dialogue.AddNode(ctx, characterID, dialogue.AddNodeParams{
		NodeID:            nodeID,
		ParentNodeID:      parent,
		UserInput:         input,
		AssistantResponse: screen,
		FullResponse:      full,
		Summary:           summary,
		ParsedContent:     parsed,
	})
	if err != nil {
		return nil, err
	}

	if e.summaries {
		source := summary
		if strings.TrimSpace(source) == "" {
			source = screen
		}
		e.refreshSummary(ctx, characterID, node.NodeID, source)
	}

	if prompts == nil {
		prompts = []string{}
	}
	return &TurnResult{
		NodeID:        node.NodeID,
		ParentNodeID:  parent,
		ScreenContent: screen,
		NextPrompts:   prompts,
	}, nil
}

// refreshSummary re-derives the node summary in the background. The work
// outlives ctx's cancellation; failures are only logged.
func (e *Engine) refreshSummary(ctx context.Context, characterID, nodeID, source string) {
	ctx = context.WithoutCancel(ctx)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		summary, err := e.pipeline.Summarize(ctx, source)
		if err != nil {
			e.logger.Warn("Summary refresh failed", "character", characterID, "node", nodeID, "err", err)
			return
		}
		if _, err := e.Dialogue.UpdateNode(ctx, characterID, nodeID, dialogue.NodePatch{ResponseSummary: &summary}); err != nil {
			// The node may have been deleted meanwhile.
			e.logger.Warn("Summary write failed", "character", characterID, "node", nodeID, "err", err)
		}
	}()
}

// Wait blocks until background summary refreshes finish.
func (e *Engine) Wait() {
	e.background.Wait()
}

// SwitchBranch moves the current pointer and returns the path to it.
func (e *Engine) SwitchBranch(ctx context.Context, characterID, nodeID string) ([]domain.DialogueNode, error) {
	return e.Dialogue.SwitchBranch(ctx, characterID, nodeID)
}

// DeleteNode removes a node and returns the path to the new current node.
func (e *Engine) DeleteNode(ctx context.Context, characterID, nodeID string, policy dialogue.DeletePolicy) ([]domain.DialogueNode, error) {
	return e.Dialogue.DeleteNode(ctx, characterID, nodeID, policy)
}

// EditNode replaces the text shown for a node and refreshes its summary.
func (e *Engine) EditNode(ctx context.Context, characterID, nodeID, content string) (*domain.DialogueNode, error) {
	node, err := e.Dialogue.UpdateNode(ctx, characterID, nodeID, dialogue.NodePatch{
		AssistantResponse: &content,
		ParsedContent:     map[string]any{nodes.TagScreen: content},
	})
	if err != nil {
		return nil, err
	}
	if e.summaries {
		e.refreshSummary(ctx, characterID, nodeID, content)
	}
	return node, nil
}

// Path returns the path to the current node.
func (e *Engine) Path(ctx context.Context, characterID string) ([]domain.DialogueNode, error) {
	return e.Dialogue.CurrentPath(ctx, characterID)
}

// Tree returns the character's dialogue tree.
func (e *Engine) Tree(ctx context.Context, characterID string) (*domain.DialogueTree, error) {
	return e.Dialogue.GetTree(ctx, characterID)
}
