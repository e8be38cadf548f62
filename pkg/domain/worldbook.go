package domain

import "encoding/json"

// World-book injection positions. Entries without a valid position land in PositionDefault.
const (
	PositionBeforeCharacter = 0
	PositionAfterCharacter  = 1
	PositionBeforeExamples  = 2
	PositionAfterExamples   = 3
	PositionDefault         = 4

	PositionCount = 5
)

// WorldBookEntry is a character-scoped piece of lore.
type WorldBookEntry struct {
	UID            int            `json:"uid" mapstructure:"uid"`
	Content        string         `json:"content" mapstructure:"content"`
	Keys           []string       `json:"keys" mapstructure:"keys"`
	SecondaryKeys  []string       `json:"secondary_keys" mapstructure:"secondary_keys"`
	Selective      bool           `json:"selective" mapstructure:"selective"`
	Constant       bool           `json:"constant" mapstructure:"constant"`
	Position       *int           `json:"position,omitempty" mapstructure:"position"`
	Depth          int            `json:"depth" mapstructure:"depth"`
	InsertionOrder int            `json:"insertion_order" mapstructure:"insertion_order"`
	Enabled        bool           `json:"enabled" mapstructure:"enabled"`
	Comment        string         `json:"comment" mapstructure:"comment"`
	Extensions     map[string]any `json:"extensions,omitempty" mapstructure:"extensions"`
}

// Bucket returns the injection bucket of the entry (0-4).
func (e WorldBookEntry) Bucket() int {
	if e.Position == nil || *e.Position < 0 || *e.Position >= PositionCount {
		return PositionDefault
	}
	return *e.Position
}

// UnmarshalJSON decodes an entry. Absent selective and enabled flags are on,
// matching how imported character books are read.
func (e *WorldBookEntry) UnmarshalJSON(data []byte) error {
	type plain WorldBookEntry
	p := plain{Selective: true, Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = WorldBookEntry(p)
	return nil
}
