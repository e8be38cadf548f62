package workflow

import (
	"context"
	"errors"
	"fmt"
)

type nodeSpec struct {
	typeName string
	cfg      NodeConfig
	initData map[string]any
}

// Builder assembles a named Workflow.
type Builder struct {
	name     string
	registry *Registry
	specs    []nodeSpec
	opts     []EngineOption
}

// NewBuilder starts a workflow called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Use sets the registry nodes are constructed from.
func (b *Builder) Use(r *Registry) *Builder {
	b.registry = r
	return b
}

// AddNode declares a node of the given type. initData holds static
// construction params; params named in cfg.InitParams are taken from the
// initial data of each execution and override them.
func (b *Builder) AddNode(typeName string, cfg NodeConfig, initData map[string]any) *Builder {
	cfg.Type = typeName
	b.specs = append(b.specs, nodeSpec{typeName: typeName, cfg: cfg, initData: initData})
	return b
}

// WithEngineOptions adds options applied to every engine the workflow creates.
func (b *Builder) WithEngineOptions(opts ...EngineOption) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build validates the declared graph and the node types.
func (b *Builder) Build() (*Workflow, error) {
	if b.registry == nil {
		return nil, errors.New("workflow builder: no registry configured")
	}

	configs := make([]NodeConfig, 0, len(b.specs))
	for _, s := range b.specs {
		if !b.registry.Has(s.typeName) {
			return nil, graphError(s.cfg.ID, "type", "unknown node type %q", s.typeName)
		}
		configs = append(configs, s.cfg)
	}

	graph, err := ValidateGraph(configs)
	if err != nil {
		return nil, err
	}

	opts := append([]EngineOption{WithName(b.name)}, b.opts...)
	return &Workflow{
		name:     b.name,
		registry: b.registry,
		specs:    append([]nodeSpec(nil), b.specs...),
		graph:    graph,
		opts:     opts,
	}, nil
}

// Workflow is a reusable, validated workflow definition.
type Workflow struct {
	name     string
	registry *Registry
	specs    []nodeSpec
	graph    *Graph
	opts     []EngineOption
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// Graph returns the validated graph.
func (w *Workflow) Graph() *Graph {
	return w.graph
}

// Configs returns the node configs in declaration order.
func (w *Workflow) Configs() []NodeConfig {
	out := make([]NodeConfig, len(w.specs))
	for i, s := range w.specs {
		out[i] = s.cfg
	}
	return out
}

// Execute constructs fresh nodes and runs one turn.
func (w *Workflow) Execute(ctx context.Context, initialData map[string]any, opts ...EngineOption) (*Result, error) {
	nodes := make([]Node, 0, len(w.specs))
	for _, s := range w.specs {
		params := make(map[string]any, len(s.initData)+len(s.cfg.InitParams))
		for k, v := range s.initData {
			params[k] = v
		}
		for _, key := range s.cfg.InitParams {
			if v, ok := initialData[key]; ok {
				params[key] = v
			}
		}

		node, err := w.registry.Construct(s.typeName, s.cfg, params)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", w.name, err)
		}
		nodes = append(nodes, node)
	}

	engine, err := NewEngine(nodes, append(append([]EngineOption(nil), w.opts...), opts...)...)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, initialData)
}
