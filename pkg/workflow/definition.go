package workflow

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definition is the serialized form of a workflow.
//
//	name: turn
//	nodes:
//	  - type: entry
//	    params: {}
//	    config:
//	      id: entry
//	      category: entry
//	      next: [llm]
type Definition struct {
	Name  string           `yaml:"name"`
	Nodes []NodeDefinition `yaml:"nodes"`
}

// NodeDefinition declares one node of a Definition.
type NodeDefinition struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params,omitempty"`
	Config NodeConfig     `yaml:"config"`
}

// ParseDefinition decodes a YAML workflow definition.
func ParseDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	if def.Name == "" {
		def.Name = "workflow"
	}
	return &def, nil
}

// Build constructs and validates the workflow against registry.
func (d *Definition) Build(registry *Registry, opts ...EngineOption) (*Workflow, error) {
	b := NewBuilder(d.Name).Use(registry).WithEngineOptions(opts...)
	for _, n := range d.Nodes {
		b.AddNode(n.Type, n.Config, n.Params)
	}
	return b.Build()
}

// Marshal encodes d as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Definition returns the serializable form of the workflow.
func (w *Workflow) Definition() *Definition {
	def := &Definition{Name: w.name, Nodes: make([]NodeDefinition, len(w.specs))}
	for i, s := range w.specs {
		def.Nodes[i] = NodeDefinition{Type: s.typeName, Params: s.initData, Config: s.cfg}
	}
	return def
}
