package llm

import (
	"context"
	"fmt"

	"github.com/aretw0/taleweave/pkg/domain"
)

// EchoGenerator answers without any network call. It mirrors the user
// message inside the response tags the default preset asks for, which keeps
// the CLI usable offline.
type EchoGenerator struct{}

func (EchoGenerator) Generate(ctx context.Context, systemMessage, userMessage string, cfg domain.RuntimeConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := lastLine(userMessage)
	return fmt.Sprintf("<screen>You said: %s</screen>\n<summary>%s</summary>\n<next_prompts>\n- Continue\n- Look around\n</next_prompts>", last, last), nil
}

func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
