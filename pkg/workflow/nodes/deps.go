package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/aretw0/taleweave/pkg/regex"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/mitchellh/mapstructure"
)

// Node type names.
const (
	TypeEntry     = "entry"
	TypePreset    = "preset"
	TypeContext   = "context"
	TypeWorldBook = "worldbook"
	TypeLLM       = "llm"
	TypeRegex     = "regex"
	TypeOutput    = "output"
)

// Bag keys exchanged by the turn nodes.
const (
	KeyCharacterID   = "character_id"
	KeyUserInput     = "user_input"
	KeyRuntimeConfig = "runtime_config"
	KeyCharacter     = "character"
	KeyPreset        = "preset"
	KeyHistory       = "history"
	KeyHistoryText   = "history_text"
	KeyParentNodeID  = "parent_node_id"
	KeyLore          = "lore"
	KeySystemPrompt  = "system_prompt"
	KeyUserPrompt    = "user_prompt"
	KeyRawResponse   = "raw_response"
	KeyResponse      = "response"
	KeyRegexApplied  = "regex_applied"
	KeyScreenContent = "screen_content"
	KeyNextPrompts   = "next_prompts"
	KeySummary       = "summary"
	KeyParsedContent = "parsed_content"
	KeyFullResponse  = "full_response"
)

// Characters looks up character profiles.
type Characters interface {
	Get(ctx context.Context, id string) (*domain.Character, error)
}

// Presets resolves a preset id, "" meaning the default one.
type Presets interface {
	Resolve(ctx context.Context, id string) (domain.Preset, error)
}

// Trees loads dialogue trees.
type Trees interface {
	GetTree(ctx context.Context, characterID string) (*domain.DialogueTree, error)
}

// WorldBooks lists a character's world-book entries.
type WorldBooks interface {
	List(ctx context.Context, characterID string) ([]domain.WorldBookEntry, error)
}

// TextProcessor runs owner-scoped text substitution.
type TextProcessor interface {
	Process(ctx context.Context, text, ownerID string) (*regex.Result, error)
}

// Deps are the collaborators captured by the node constructors.
type Deps struct {
	Characters Characters
	Presets    Presets
	Trees      Trees
	WorldBooks WorldBooks
	Generator  ports.Generator
	Regex      TextProcessor
}

var errMissingDep = errors.New("missing dependency")

// Register binds every turn node type to reg.
func Register(reg *workflow.Registry, deps Deps) {
	reg.Register(TypeEntry, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		n := &EntryNode{BaseNode: workflow.NewBaseNode(cfg)}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypePreset, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		if deps.Characters == nil || deps.Presets == nil {
			return nil, fmt.Errorf("%w: characters and presets", errMissingDep)
		}
		n := &PresetNode{BaseNode: workflow.NewBaseNode(cfg), characters: deps.Characters, presets: deps.Presets}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypeContext, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		if deps.Trees == nil {
			return nil, fmt.Errorf("%w: dialogue trees", errMissingDep)
		}
		n := &ContextNode{BaseNode: workflow.NewBaseNode(cfg), trees: deps.Trees}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypeWorldBook, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		if deps.WorldBooks == nil {
			return nil, fmt.Errorf("%w: world books", errMissingDep)
		}
		n := &WorldBookNode{BaseNode: workflow.NewBaseNode(cfg), books: deps.WorldBooks}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypeLLM, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		if deps.Generator == nil {
			return nil, fmt.Errorf("%w: generator", errMissingDep)
		}
		n := &LLMNode{BaseNode: workflow.NewBaseNode(cfg), generator: deps.Generator}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypeRegex, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		if deps.Regex == nil {
			return nil, fmt.Errorf("%w: regex pipeline", errMissingDep)
		}
		n := &RegexNode{BaseNode: workflow.NewBaseNode(cfg), pipeline: deps.Regex}
		return n, decodeParams(params, &n.params)
	})
	reg.Register(TypeOutput, func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		return &OutputNode{BaseNode: workflow.NewBaseNode(cfg)}, nil
	})
}

func decodeParams(params map[string]any, dst any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("failed to decode node params: %w", err)
	}
	return nil
}

// RuntimeConfig reads the runtime config carried under key. It accepts the
// struct, a pointer to it, or a generic map as decoded from JSON.
func RuntimeConfig(in workflow.Fields, key string) (domain.RuntimeConfig, error) {
	switch v := in[key].(type) {
	case nil:
		return domain.RuntimeConfig{}, nil
	case domain.RuntimeConfig:
		return v, nil
	case *domain.RuntimeConfig:
		if v == nil {
			return domain.RuntimeConfig{}, nil
		}
		return *v, nil
	case map[string]any:
		var rc domain.RuntimeConfig
		if err := decodeParams(v, &rc); err != nil {
			return domain.RuntimeConfig{}, err
		}
		return rc, nil
	default:
		return domain.RuntimeConfig{}, fmt.Errorf("unsupported runtime config type %T", v)
	}
}
