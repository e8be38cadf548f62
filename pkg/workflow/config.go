package workflow

// Category places a node in the graph.
type Category string

const (
	CategoryEntry  Category = "entry"
	CategoryMiddle Category = "middle"
	CategoryExit   Category = "exit"
)

// Fields is a set of named values exchanged between nodes.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names of f in no particular order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}

// NodeConfig declares a node and its place in the graph.
type NodeConfig struct {
	ID       string   `json:"id" yaml:"id"`
	Type     string   `json:"type" yaml:"type"`
	Name     string   `json:"name" yaml:"name"`
	Category Category `json:"category" yaml:"category"`
	Next     []string `json:"next,omitempty" yaml:"next,omitempty"`

	// InitParams are initial-data keys handed to the constructor, not to Execute.
	InitParams []string `json:"init_params,omitempty" yaml:"init_params,omitempty"`

	// InputFields are read from the bag before Execute. On the entry node they
	// name the keys the caller must supply in the initial data.
	InputFields []string `json:"input_fields,omitempty" yaml:"input_fields,omitempty"`

	// OutputFields are the only keys merged back into the bag.
	OutputFields []string `json:"output_fields,omitempty" yaml:"output_fields,omitempty"`

	// InputMapping renames bag keys (map key) to node input names (map value).
	InputMapping map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
}

// bagKey returns the bag key that feeds the node input field.
func (c NodeConfig) bagKey(field string) string {
	for from, to := range c.InputMapping {
		if to == field {
			return from
		}
	}
	return field
}

func (c NodeConfig) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
