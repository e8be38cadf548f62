package regex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/dlclark/regexp2"
)

// ScriptSource supplies the scripts and settings of an owner.
type ScriptSource interface {
	Scripts(ctx context.Context, ownerID string) ([]domain.RegexScript, error)
	Settings(ctx context.Context, ownerID string) (domain.RegexSettings, error)
}

// Result describes one pipeline run.
type Result struct {
	Original string
	Final    string
	// Applied lists the keys of scripts that changed the text, in run order.
	Applied []string
	// Success is true when at least one script changed the text.
	Success bool
	// Errors holds scripts skipped because their pattern could not be used.
	Errors []*domain.PatternError
}

// Pipeline runs owner and global scripts over text.
type Pipeline struct {
	source ScriptSource
	logger *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline reading scripts from source.
func NewPipeline(source ScriptSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{source: source, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies the owner's scripts plus the global ones to text.
// Only store failures are returned as errors; broken scripts are skipped and
// reported in Result.Errors.
func (p *Pipeline) Process(ctx context.Context, text, ownerID string) (*Result, error) {
	res := &Result{Original: text, Final: text, Applied: []string{}}

	settings, err := p.source.Settings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load regex settings for %s: %w", ownerID, err)
	}
	if !settings.Enabled {
		return res, nil
	}

	scripts, err := p.resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, s := range scripts {
		out, err := Apply(s, res.Final)
		if err != nil {
			var perr *domain.PatternError
			if !errors.As(err, &perr) {
				perr = &domain.PatternError{ScriptKey: s.Key(), Pattern: s.FindRegex, Err: err}
			}
			res.Errors = append(res.Errors, perr)
			p.logger.Warn("Regex script skipped", "script", s.Key(), "owner", ownerID, "err", err)
			continue
		}
		if out != res.Final {
			res.Final = out
			res.Applied = append(res.Applied, s.Key())
		}
	}

	res.Success = len(res.Applied) > 0
	return res, nil
}

// resolve returns the runnable scripts of owner and global, ordered by placement.
func (p *Pipeline) resolve(ctx context.Context, ownerID string) ([]domain.RegexScript, error) {
	owners := []string{ownerID}
	if ownerID != domain.GlobalScope {
		owners = append(owners, domain.GlobalScope)
	}

	var scripts []domain.RegexScript
	for _, owner := range owners {
		list, err := p.source.Scripts(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load regex scripts for %s: %w", owner, err)
		}
		for _, s := range list {
			if s.Disabled || IsIdentity(s) || s.FindRegex == "" {
				continue
			}
			scripts = append(scripts, s)
		}
	}

	sort.SliceStable(scripts, func(i, j int) bool {
		return scripts[i].Order() < scripts[j].Order()
	})
	return scripts, nil
}

// IsIdentity reports whether s is the inert match-everything script.
func IsIdentity(s domain.RegexScript) bool {
	return strings.TrimSpace(s.FindRegex) == IdentityPattern && s.ReplaceString == ""
}

// Apply runs one script over text.
func Apply(s domain.RegexScript, text string) (string, error) {
	c, err := Compile(s.FindRegex)
	if err != nil {
		return text, &domain.PatternError{ScriptKey: s.Key(), Pattern: s.FindRegex, Err: err}
	}

	count := 1
	if c.Global {
		count = -1
	}

	return c.Re.ReplaceFunc(text, func(m regexp2.Match) string {
		return expand(s.ReplaceString, &m, s.TrimStrings)
	}, -1, count)
}

// matchToken inserts the whole match in a replacement, case-insensitively.
const matchToken = "{{match}}"

// expand builds the replacement for one match. "{{match}}", "$&" and "$0"
// insert the whole match and "$$" is a literal dollar. "$n"/"$nn" insert a
// capture group, preferring the two-digit group when it exists; a reference
// to a group the pattern does not have stays literal text. Every inserted
// value has TrimStrings removed.
func expand(tmpl string, m *regexp2.Match, trim []string) string {
	groups := m.Groups()
	group := func(n int) string { return trimAll(groups[n].String(), trim) }
	maxGroup := len(groups) - 1

	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c == '{' && i+len(matchToken) <= len(tmpl) && strings.EqualFold(tmpl[i:i+len(matchToken)], matchToken) {
			sb.WriteString(group(0))
			i += len(matchToken) - 1
			continue
		}
		if c != '$' || i+1 >= len(tmpl) {
			sb.WriteByte(c)
			continue
		}
		next := tmpl[i+1]
		switch {
		case next == '$':
			sb.WriteByte('$')
			i++
		case next == '&':
			sb.WriteString(group(0))
			i++
		case isDigit(next):
			if i+2 < len(tmpl) && isDigit(tmpl[i+2]) {
				if n := int(next-'0')*10 + int(tmpl[i+2]-'0'); n >= 1 && n <= maxGroup {
					sb.WriteString(group(n))
					i += 2
					continue
				}
			}
			if n := int(next - '0'); n <= maxGroup {
				sb.WriteString(group(n))
				i++
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func trimAll(s string, trim []string) string {
	for _, t := range trim {
		if t != "" {
			s = strings.ReplaceAll(s, t, "")
		}
	}
	return s
}
