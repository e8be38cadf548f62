package workflow

import (
	"context"
	"time"

	"github.com/aretw0/taleweave/pkg/domain"
)

// Node is one processing step of a workflow.
//
// Execute is the only method allowed to perform I/O and must derive its result
// from its input alone. The hooks observe the run and cannot stop it. OnError
// records diagnostics; the engine still aborts the run afterwards.
type Node interface {
	ID() string
	Config() NodeConfig
	ValidateInput(ctx context.Context, in Fields) error
	Execute(ctx context.Context, in Fields, nc *NodeContext) (Fields, error)
	ValidateOutput(ctx context.Context, out Fields) error
	BeforeExecute(ctx context.Context, in Fields, nc *NodeContext)
	AfterExecute(ctx context.Context, out Fields, nc *NodeContext)
	OnError(ctx context.Context, err error, nc *NodeContext)
}

// BaseNode provides the default behavior of every Node method except Execute.
// Embed it and override what you need.
type BaseNode struct {
	Cfg NodeConfig
}

// NewBaseNode returns a BaseNode for cfg.
func NewBaseNode(cfg NodeConfig) BaseNode {
	return BaseNode{Cfg: cfg}
}

func (b BaseNode) ID() string         { return b.Cfg.ID }
func (b BaseNode) Config() NodeConfig { return b.Cfg }

func (b BaseNode) ValidateInput(ctx context.Context, in Fields) error   { return nil }
func (b BaseNode) ValidateOutput(ctx context.Context, out Fields) error { return nil }

func (b BaseNode) BeforeExecute(ctx context.Context, in Fields, nc *NodeContext) {}
func (b BaseNode) AfterExecute(ctx context.Context, out Fields, nc *NodeContext) {}

// OnError records the error message and time under "<id>_error" and "<id>_error_at".
func (b BaseNode) OnError(ctx context.Context, err error, nc *NodeContext) {
	nc.SetMetadata(b.Cfg.ID, "error", err.Error())
	nc.SetMetadata(b.Cfg.ID, "error_at", time.Now().UTC().Format(time.RFC3339Nano))
}

// RequireFields fails with a ValidationError naming the first field that is
// missing, nil, or an empty string.
func RequireFields(nodeID string, in Fields, fields ...string) error {
	for _, f := range fields {
		v, ok := in[f]
		if !ok || v == nil {
			return &domain.ValidationError{NodeID: nodeID, Field: f, Reason: "required field is missing"}
		}
		if s, isString := v.(string); isString && s == "" {
			return &domain.ValidationError{NodeID: nodeID, Field: f, Reason: "required field is empty"}
		}
	}
	return nil
}

// RequirePresent is RequireFields for fields whose empty string is a valid
// value, such as text a transform may have erased.
func RequirePresent(nodeID string, in Fields, fields ...string) error {
	for _, f := range fields {
		if v, ok := in[f]; !ok || v == nil {
			return &domain.ValidationError{NodeID: nodeID, Field: f, Reason: "required field is missing"}
		}
	}
	return nil
}

// String returns in[key] when it is a string.
func String(in Fields, key string) string {
	s, _ := in[key].(string)
	return s
}
