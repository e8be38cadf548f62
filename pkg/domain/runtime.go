package domain

// RuntimeConfig carries per-turn model parameters supplied by the caller.
// Zero values mean "use the generator's defaults".
type RuntimeConfig struct {
	Model       string         `json:"model,omitempty" mapstructure:"model"`
	Temperature *float64       `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int            `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	TopP        *float64       `json:"top_p,omitempty" mapstructure:"top_p"`
	PresetID    string         `json:"preset_id,omitempty" mapstructure:"preset_id"`
	UserName    string         `json:"user_name,omitempty" mapstructure:"user_name"`
	Extra       map[string]any `json:"extra,omitempty" mapstructure:"extra"`
}
