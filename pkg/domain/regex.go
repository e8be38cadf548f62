package domain

// GlobalScope is the owner id of scripts applied to every character.
const GlobalScope = "global"

// DefaultPlacement is the sort position of scripts without a placement.
const DefaultPlacement = 999

// RegexScript is an owner-scoped find/replace rule.
type RegexScript struct {
	ScriptKey     string         `json:"scriptKey"`
	ID            string         `json:"id"`
	ScriptName    string         `json:"scriptName"`
	FindRegex     string         `json:"findRegex"`
	ReplaceString string         `json:"replaceString"`
	TrimStrings   []string       `json:"trimStrings"`
	Placement     []int          `json:"placement"`
	Disabled      bool           `json:"disabled"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Key returns the identifier recorded when the script is applied.
func (s RegexScript) Key() string {
	switch {
	case s.ScriptKey != "":
		return s.ScriptKey
	case s.ID != "":
		return s.ID
	default:
		return s.ScriptName
	}
}

// Order returns the sort position of the script.
func (s RegexScript) Order() int {
	if len(s.Placement) == 0 {
		return DefaultPlacement
	}
	return s.Placement[0]
}

// RegexSettings controls the pipeline for one owner.
type RegexSettings struct {
	Enabled bool `json:"enabled"`
}
