package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/domain"
)

// Result is the outcome of one run.
type Result struct {
	// Output holds the declared outputs of the exit nodes.
	Output Fields
	// Bag is the shared data bag after the last node.
	Bag Fields
	// Context is the run's scratchpad (message log and diagnostics).
	Context *NodeContext
}

// Engine runs a validated graph of node instances.
// An Engine holds no per-run state; every Run owns its bag and context.
type Engine struct {
	name   string
	graph  *Graph
	nodes  map[string]Node
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithName labels events and logs with the workflow name.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine validates the graph formed by the nodes' configs.
func NewEngine(nodes []Node, opts ...EngineOption) (*Engine, error) {
	configs := make([]NodeConfig, 0, len(nodes))
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		cfg := n.Config()
		if cfg.ID != n.ID() {
			return nil, graphError(n.ID(), "id", "config id %q does not match node id", cfg.ID)
		}
		configs = append(configs, cfg)
		byID[n.ID()] = n
	}

	g, err := ValidateGraph(configs)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		graph:  g,
		nodes:  byID,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Graph returns the validated graph.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Run executes one turn starting from initial.
// The initial map is copied; the caller's map is never modified.
func (e *Engine) Run(ctx context.Context, initial map[string]any) (*Result, error) {
	bag := Fields(initial).Clone()
	nc := NewNodeContext()
	output := make(Fields)

	// A node's snapshot is the bag as it stood when its last predecessor finished,
	// so fan-out siblings all see the same upstream state.
	snapshots := map[string]Fields{e.graph.Entry: bag.Clone()}
	remaining := make(map[string]int, len(e.graph.Order))
	for _, id := range e.graph.Order {
		remaining[id] = len(e.graph.Predecessors(id))
	}

	queue := []string{e.graph.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("workflow %s canceled before node %s: %w", e.name, id, err)
		}

		node := e.nodes[id]
		cfg := node.Config()

		out, err := e.runNode(ctx, node, snapshots[id], nc)
		if err != nil {
			return nil, err
		}
		delete(snapshots, id)

		for _, field := range cfg.OutputFields {
			if v, ok := out[field]; ok {
				bag[field] = v
				if cfg.Category == CategoryExit {
					output[field] = v
				}
			}
		}

		for _, next := range cfg.Next {
			remaining[next]--
			if remaining[next] == 0 {
				snapshots[next] = bag.Clone()
				queue = append(queue, next)
			}
		}
	}

	return &Result{Output: output, Bag: bag, Context: nc}, nil
}

// runNode performs steps (a)-(h) for one node and returns its raw output.
func (e *Engine) runNode(ctx context.Context, node Node, bag Fields, nc *NodeContext) (Fields, error) {
	cfg := node.Config()

	in := make(Fields, len(cfg.InputFields))
	for _, field := range cfg.InputFields {
		if v, ok := bag[cfg.bagKey(field)]; ok {
			in[field] = v
		}
	}

	start := e.now()
	node.BeforeExecute(ctx, in, nc)
	e.emit(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, cfg, 0, nil)
	e.logger.Debug("Node started", "workflow", e.name, "node", cfg.ID, "name", cfg.displayName(), "type", cfg.Type)

	out, err := e.invoke(ctx, node, in, nc)
	if err != nil {
		node.OnError(ctx, err, nc)
		e.emit(ctx, e.hooks.OnNodeError, domain.EventNodeError, cfg, e.now().Sub(start), err)
		e.logger.Error("Node failed", "workflow", e.name, "node", cfg.ID, "err", err)
		return nil, err
	}

	node.AfterExecute(ctx, out, nc)
	elapsed := e.now().Sub(start)
	e.emit(ctx, e.hooks.OnNodeLeave, domain.EventNodeLeave, cfg, elapsed, nil)
	e.logger.Debug("Node finished", "workflow", e.name, "node", cfg.ID, "duration", elapsed)
	return out, nil
}

func (e *Engine) invoke(ctx context.Context, node Node, in Fields, nc *NodeContext) (Fields, error) {
	id := node.ID()

	if err := node.ValidateInput(ctx, in); err != nil {
		return nil, asValidation(id, err)
	}

	out, err := node.Execute(ctx, in, nc)
	if err != nil {
		var verr *domain.ValidationError
		var xerr *domain.ExecutionError
		if errors.As(err, &verr) || errors.As(err, &xerr) {
			return nil, err
		}
		return nil, &domain.ExecutionError{NodeID: id, Err: err}
	}
	if out == nil {
		out = Fields{}
	}

	if err := node.ValidateOutput(ctx, out); err != nil {
		return nil, asValidation(id, err)
	}
	return out, nil
}

func asValidation(nodeID string, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &domain.ValidationError{NodeID: nodeID, Reason: err.Error()}
}

func (e *Engine) emit(ctx context.Context, hook func(context.Context, *domain.NodeEvent), typ domain.EventType, cfg NodeConfig, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{
			Timestamp: e.now(),
			Type:      typ,
			Workflow:  e.name,
		},
		NodeID:   cfg.ID,
		NodeType: cfg.Type,
		Duration: d,
		Err:      err,
	})
}
