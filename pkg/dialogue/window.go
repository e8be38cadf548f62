package dialogue

import (
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
)

// DefaultRecentTurns is the number of trailing turns kept verbatim.
const DefaultRecentTurns = 5

// Window splits an active path into summarized and verbatim parts.
type Window struct {
	Older  []domain.DialogueNode
	Recent []domain.DialogueNode
}

// SplitHistory keeps the last n path entries in Recent and the rest in Older.
// n <= 0 uses DefaultRecentTurns.
func SplitHistory(path []domain.DialogueNode, n int) Window {
	if n <= 0 {
		n = DefaultRecentTurns
	}
	if len(path) <= n {
		return Window{Recent: path}
	}
	cut := len(path) - n
	return Window{Older: path[:cut], Recent: path[cut:]}
}

// Messages renders the window as a role-tagged log. Older turns contribute
// their summary (or the response when no summary exists); recent turns are
// rendered verbatim.
func (w Window) Messages() []domain.Message {
	msgs := make([]domain.Message, 0, 2*(len(w.Older)+len(w.Recent)))
	for _, n := range w.Older {
		msgs = appendTurn(msgs, n.UserInput, firstNonEmpty(n.ResponseSummary, n.AssistantResponse))
	}
	for _, n := range w.Recent {
		msgs = appendTurn(msgs, n.UserInput, n.AssistantResponse)
	}
	return msgs
}

// Transcript renders the window as "role: content" lines.
func (w Window) Transcript() string {
	var sb strings.Builder
	for _, m := range w.Messages() {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func appendTurn(msgs []domain.Message, user, assistant string) []domain.Message {
	if user != "" {
		msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: user})
	}
	if assistant != "" {
		msgs = append(msgs, domain.Message{Role: domain.RoleAssistant, Content: assistant})
	}
	return msgs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
