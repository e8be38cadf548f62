package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greetNode outputs a greeting built from a construction-time param.
type greetNode struct {
	workflow.BaseNode
	prefix string
}

func (n *greetNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	return workflow.Fields{"greeting": n.prefix + workflow.String(in, "name")}, nil
}

func testRegistry(constructed *int) *workflow.Registry {
	r := workflow.NewRegistry()
	r.Register("greet", func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		*constructed++
		prefix, _ := params["prefix"].(string)
		return &greetNode{BaseNode: workflow.NewBaseNode(cfg), prefix: prefix}, nil
	})
	r.Register("broken", func(cfg workflow.NodeConfig, params map[string]any) (workflow.Node, error) {
		return nil, errors.New("missing dependency")
	})
	return r
}

func TestBuilder_ExecuteBuildsFreshNodes(t *testing.T) {
	constructed := 0
	wf, err := workflow.NewBuilder("hello").
		Use(testRegistry(&constructed)).
		AddNode("greet", workflow.NodeConfig{
			ID:           "g",
			Category:     workflow.CategoryEntry,
			Next:         []string{"out"},
			InitParams:   []string{"prefix"},
			InputFields:  []string{"name"},
			OutputFields: []string{"greeting"},
		}, map[string]any{"prefix": "Hi "}).
		AddNode("greet", workflow.NodeConfig{
			ID:           "out",
			Category:     workflow.CategoryExit,
			InputFields:  []string{"name"},
			OutputFields: []string{"greeting"},
		}, map[string]any{"prefix": "Bye "}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "hello", wf.Name())
	assert.Equal(t, "greet", wf.Configs()[0].Type)

	res, err := wf.Execute(context.Background(), map[string]any{"name": "Ann", "prefix": "Hello "})
	require.NoError(t, err)
	assert.Equal(t, "Bye Ann", res.Output["greeting"])
	assert.Equal(t, 2, constructed)

	_, err = wf.Execute(context.Background(), map[string]any{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, 4, constructed, "each execution constructs new nodes")
}

func TestBuilder_Errors(t *testing.T) {
	n := 0

	_, err := workflow.NewBuilder("x").AddNode("greet", cfg("g", workflow.CategoryEntry), nil).Build()
	assert.Error(t, err, "registry is required")

	_, err = workflow.NewBuilder("x").Use(testRegistry(&n)).AddNode("nope", cfg("g", workflow.CategoryExit), nil).Build()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)

	wf, err := workflow.NewBuilder("x").Use(testRegistry(&n)).
		AddNode("greet", cfg("g", workflow.CategoryEntry, "b"), nil).
		AddNode("broken", cfg("b", workflow.CategoryExit), nil).
		Build()
	require.NoError(t, err)
	_, err = wf.Execute(context.Background(), nil)
	assert.ErrorContains(t, err, "missing dependency")
}

func TestRegistry_Types(t *testing.T) {
	n := 0
	r := testRegistry(&n)
	assert.Equal(t, []string{"broken", "greet"}, r.Types())

	_, err := r.Construct("ghost", cfg("g", workflow.CategoryEntry), nil)
	assert.ErrorContains(t, err, "node type not found")
}
