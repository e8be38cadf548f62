package preset

import (
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
)

// DefaultID names the built-in preset used when none is configured.
const DefaultID = "default"

// Default is the built-in preset.
var Default = domain.Preset{
	ID:   DefaultID,
	Name: "Default",
	SystemTemplate: `{{system}}
{{lore_before_char}}
You are {{char}}. Stay in character and continue the story with {{user}}.
{{description}}
Personality: {{personality}}
Scenario: {{scenario}}
{{lore_after_char}}
{{lore_before_examples}}
{{mes_example}}
{{lore_after_examples}}
{{lore}}

Reply with the story text for the screen inside <screen></screen>, a one-line
recap inside <summary></summary>, and up to three suggested user replies as a
list inside <next_prompts></next_prompts>.`,
	UserTemplate: `{{history}}

{{user}}: {{input}}`,
}

// Vars are the macro values available to templates.
type Vars struct {
	Char         string
	User         string
	Description  string
	Personality  string
	Scenario     string
	MesExample   string
	SystemPrompt string
	Input        string
	History      string
	// Lore holds rendered world-book text per injection bucket.
	Lore [domain.PositionCount]string
}

// CharacterVars fills the character macros from c.
func CharacterVars(c domain.Character, userName string) Vars {
	if userName == "" {
		userName = "User"
	}
	v := Vars{
		Char:         c.Name,
		User:         userName,
		Description:  c.Description,
		Personality:  c.Personality,
		Scenario:     c.Scenario,
		SystemPrompt: c.SystemPrompt,
	}
	// Card fields may reference the macros themselves.
	r := strings.NewReplacer("{{char}}", v.Char, "{{user}}", v.User)
	v.Description = r.Replace(v.Description)
	v.Personality = r.Replace(v.Personality)
	v.Scenario = r.Replace(v.Scenario)
	v.MesExample = r.Replace(c.MessageExample)
	return v
}

func (v Vars) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{{char}}", v.Char,
		"{{user}}", v.User,
		"{{description}}", v.Description,
		"{{personality}}", v.Personality,
		"{{scenario}}", v.Scenario,
		"{{mes_example}}", v.MesExample,
		"{{system}}", v.SystemPrompt,
		"{{input}}", v.Input,
		"{{history}}", v.History,
		"{{lore_before_char}}", v.Lore[domain.PositionBeforeCharacter],
		"{{lore_after_char}}", v.Lore[domain.PositionAfterCharacter],
		"{{lore_before_examples}}", v.Lore[domain.PositionBeforeExamples],
		"{{lore_after_examples}}", v.Lore[domain.PositionAfterExamples],
		"{{lore}}", v.Lore[domain.PositionDefault],
	)
}

// Render expands p's templates with v and returns the system and user messages.
// Runs of blank lines left by empty macros are collapsed.
func Render(p domain.Preset, v Vars) (system, user string) {
	r := v.replacer()
	return tidy(r.Replace(p.SystemTemplate)), tidy(r.Replace(p.UserTemplate))
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
