package workflow_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetYAML = `
name: greet
nodes:
  - type: greet
    params:
      prefix: "Hello "
    config:
      id: g
      category: entry
      next: [out]
      input_fields: [name]
      output_fields: [greeting]
  - type: greet
    config:
      id: out
      category: exit
      input_fields: [name]
      output_fields: [greeting]
      input_mapping:
        greeting: name
`

func TestDefinition_ParseAndBuild(t *testing.T) {
	def, err := workflow.ParseDefinition(strings.NewReader(greetYAML))
	require.NoError(t, err)
	assert.Equal(t, "greet", def.Name)
	require.Len(t, def.Nodes, 2)

	constructed := 0
	wf, err := def.Build(testRegistry(&constructed))
	require.NoError(t, err)

	res, err := wf.Execute(context.Background(), map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann", res.Output["greeting"])

	// Round trip through the serialized form.
	data, err := wf.Definition().Marshal()
	require.NoError(t, err)
	again, err := workflow.ParseDefinition(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = again.Build(testRegistry(&constructed))
	require.NoError(t, err)
}

func TestDefinition_Errors(t *testing.T) {
	_, err := workflow.ParseDefinition(strings.NewReader("nodes:\n  - typo: x\n"))
	assert.Error(t, err, "unknown fields are rejected")

	def, err := workflow.ParseDefinition(strings.NewReader("nodes:\n  - type: nope\n    config: {id: a, category: entry}\n"))
	require.NoError(t, err)
	assert.Equal(t, "workflow", def.Name)

	constructed := 0
	_, err = def.Build(testRegistry(&constructed))
	assert.True(t, domain.IsValidation(err))
}
