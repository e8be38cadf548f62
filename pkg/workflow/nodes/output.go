package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/dlclark/regexp2"
)

// Tags with a dedicated meaning in a response.
const (
	TagScreen      = "screen"
	TagSummary     = "summary"
	TagNextPrompts = "next_prompts"
)

var tagBlock = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`<([A-Za-z_][\w-]*)>([\s\S]*?)</\1>`, regexp2.None)
	re.MatchTimeout = time.Second
	return re
}()

// Parsed is the structured form of a response.
type Parsed struct {
	// Screen is the text shown to the user.
	Screen      string
	Summary     string
	NextPrompts []string
	// Tags holds the trimmed content of every <tag>…</tag> block, first one wins.
	Tags map[string]string
}

// Content returns the parsed fields as stored on a dialogue node.
func (p Parsed) Content() map[string]any {
	out := make(map[string]any, len(p.Tags)+2)
	for k, v := range p.Tags {
		out[k] = v
	}
	out[TagScreen] = p.Screen
	out[TagNextPrompts] = p.NextPrompts
	return out
}

// ParseResponse extracts tagged blocks from text. Screen content is the
// <screen> block when present, otherwise the text with every tagged block
// removed, otherwise the whole text.
func ParseResponse(text string) Parsed {
	p := Parsed{Tags: map[string]string{}, NextPrompts: []string{}}

	m, err := tagBlock.FindStringMatch(text)
	for err == nil && m != nil {
		groups := m.Groups()
		name := strings.ToLower(groups[1].String())
		if _, seen := p.Tags[name]; !seen {
			p.Tags[name] = strings.TrimSpace(groups[2].String())
		}
		m, err = tagBlock.FindNextMatch(m)
	}

	cleaned := text
	if err == nil {
		if out, rerr := tagBlock.Replace(text, "", -1, -1); rerr == nil {
			cleaned = out
		}
	}

	p.Summary = p.Tags[TagSummary]
	p.NextPrompts = listItems(p.Tags[TagNextPrompts])
	switch {
	case p.Tags[TagScreen] != "":
		p.Screen = p.Tags[TagScreen]
	case strings.TrimSpace(cleaned) != "":
		p.Screen = strings.TrimSpace(cleaned)
	default:
		p.Screen = strings.TrimSpace(text)
	}
	return p
}

// listItems splits a block into items, dropping bullets and numbering.
func listItems(block string) []string {
	items := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(trimNumbering(line))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func trimNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[i+1:]
	}
	return s
}

// OutputNode shapes the processed response into the turn result.
type OutputNode struct {
	workflow.BaseNode
}

func (n *OutputNode) ValidateInput(ctx context.Context, in workflow.Fields) error {
	// Scripts may strip the whole response; that is an empty screen, not an error.
	return workflow.RequirePresent(n.ID(), in, KeyResponse)
}

func (n *OutputNode) Execute(ctx context.Context, in workflow.Fields, nc *workflow.NodeContext) (workflow.Fields, error) {
	text := workflow.String(in, KeyResponse)
	p := ParseResponse(text)
	return workflow.Fields{
		KeyScreenContent: p.Screen,
		KeyNextPrompts:   p.NextPrompts,
		KeySummary:       p.Summary,
		KeyParsedContent: p.Content(),
		KeyFullResponse:  text,
	}, nil
}
