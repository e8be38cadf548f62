package regex

import (
	"errors"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single match so pathological patterns cannot stall a turn.
const MatchTimeout = 2 * time.Second

// IdentityPattern is the inert script pattern that is always skipped when
// paired with an empty replacement.
const IdentityPattern = `/[\s\S]*/gm`

// Compiled is a ready-to-run script pattern.
type Compiled struct {
	Re     *regexp2.Regexp
	Global bool
	// Strategy names the repair step that produced Re.
	Strategy string
}

// Compile strategies, in the order they are attempted.
const (
	StrategyAsGiven       = "as_given"
	StrategyTrimBackslash = "trim_backslash"
	StrategyStripWrapper  = "strip_wrapper"
	StrategyLiteral       = "literal"
)

// Compile turns an authored pattern into a regexp.
//
// The pattern is tried as given, then without a trailing unescaped backslash,
// then with a /…/flags wrapper stripped, and finally as an escaped literal
// string. Control escapes (\t \n \r \f \v \b \0) are doubled before each
// attempt so they match the two-character text rather than the control
// character.
func Compile(pattern string) (*Compiled, error) {
	body, flags, isLiteral := parseLiteral(pattern)
	if !isLiteral {
		body, flags = pattern, "g"
	}

	if c, err := compileWith(body, flags, StrategyAsGiven); err == nil {
		return c, nil
	}

	if trimmed, ok := dropTrailingBackslash(body); ok {
		if c, err := compileWith(trimmed, flags, StrategyTrimBackslash); err == nil {
			return c, nil
		}
	}

	if inner, ok := stripWrapper(pattern); ok {
		if c, err := compileWith(inner, "g", StrategyStripWrapper); err == nil {
			return c, nil
		}
	}

	return compileLiteral(pattern)
}

func compileWith(body, flags, strategy string) (*Compiled, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	global := false
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		}
	}

	re, err := regexp2.Compile(doubleControlEscapes(body), opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return &Compiled{Re: re, Global: global, Strategy: strategy}, nil
}

func compileLiteral(pattern string) (*Compiled, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	re, err := regexp2.Compile(EscapeLiteral(pattern), regexp2.ECMAScript)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return &Compiled{Re: re, Global: true, Strategy: StrategyLiteral}, nil
}

const validFlags = "gimsuyd"

// parseLiteral splits "/body/flags". Flags must all be known.
func parseLiteral(p string) (body, flags string, ok bool) {
	if len(p) < 2 || p[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(p, '/')
	if end <= 0 {
		return "", "", false
	}
	flags = p[end+1:]
	for _, f := range flags {
		if !strings.ContainsRune(validFlags, f) {
			return "", "", false
		}
	}
	if flags == "" {
		flags = "g"
	}
	return p[1:end], flags, true
}

// stripWrapper returns the text between the first and last slash, ignoring flags.
func stripWrapper(p string) (string, bool) {
	if len(p) < 2 || p[0] != '/' {
		return "", false
	}
	end := strings.LastIndexByte(p, '/')
	if end <= 0 {
		return "", false
	}
	return p[1:end], true
}

func dropTrailingBackslash(p string) (string, bool) {
	n := 0
	for i := len(p) - 1; i >= 0 && p[i] == '\\'; i-- {
		n++
	}
	if n%2 == 1 {
		return p[:len(p)-1], true
	}
	return "", false
}

func doubleControlEscapes(p string) string {
	if !strings.Contains(p, `\`) {
		return p
	}
	var sb strings.Builder
	sb.Grow(len(p) + 8)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '\\' || i+1 >= len(p) {
			sb.WriteByte(c)
			continue
		}
		next := p[i+1]
		switch next {
		case 't', 'n', 'r', 'f', 'v', 'b', '0':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte('\\')
		}
		sb.WriteByte(next)
		i++
	}
	return sb.String()
}

// EscapeLiteral escapes every regexp metacharacter in s.
func EscapeLiteral(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for _, r := range s {
		if strings.ContainsRune(`\^$.*+?()[]{}|/-`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
