package domain

// Role tags a message in a conversation log.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Character is the persisted profile a story is played against.
type Character struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Personality        string   `json:"personality"`
	Scenario           string   `json:"scenario"`
	FirstMessage       string   `json:"first_mes"`
	AlternateGreetings []string `json:"alternate_greetings,omitempty"`
	MessageExample     string   `json:"mes_example"`
	SystemPrompt       string   `json:"system_prompt,omitempty"`
}

// Preset holds the message templates used to assemble a generation prompt.
type Preset struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SystemTemplate string `json:"system_template"`
	UserTemplate   string `json:"user_template"`
}
