package extract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies where a pattern finds its keys.
type Kind int

const (
	// Call matches translation function calls: __('key'), $t("key").
	Call Kind = iota
	// Attr matches plain template attributes: v-t='key'.
	Attr
	// BoundAttr matches bound template attributes: :v-t="__('key')".
	BoundAttr
	// Custom is a user-supplied pattern.
	Custom
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "call"
	case Attr:
		return "attr"
	case BoundAttr:
		return "bound-attr"
	default:
		return "custom"
	}
}

// Pattern is one extraction rule. Matches that start inside a Skip span are
// discarded, which keeps keys inside route(), config(), asset() and similar
// helpers out of the catalog.
type Pattern struct {
	Name        string
	Description string
	Kind        Kind
	Match       *regexp.Regexp
	Skip        *regexp.Regexp
	// Group is the capture group holding the key (default 1).
	Group int
}

// skipCalls covers helper calls whose string arguments are never keys.
var skipCalls = regexp.MustCompile(`(?:route|config|asset|url|mix|old)\s*\([^\)]+\)`)

const i18nFuncs = `(?:__|trans|trans_choice|@lang|@choice|Lang::get|Lang::choice|Lang::has|\$t|i18n\.t)`

// quoted returns a literal body matcher for the given quote character with
// backslash escapes allowed.
func quoted(q string) string {
	return q + `((?:[^` + q + `\\]|\\.)*)` + q
}

var quotes = []struct{ name, char string }{
	{"single", `'`},
	{"double", `"`},
	{"backtick", "`"},
}

// DefaultPatterns returns the built-in extraction rules in evaluation order:
// function calls, attributes and bound attributes, each for single, double
// and backtick quotes.
func DefaultPatterns() []Pattern {
	var out []Pattern
	for _, q := range quotes {
		out = append(out, Pattern{
			Name:        "call-" + q.name,
			Description: "translation function call, " + q.name + " quoted",
			Kind:        Call,
			Match:       regexp.MustCompile(i18nFuncs + `\s*\(\s*` + quoted(q.char)),
			Skip:        skipCalls,
			Group:       1,
		})
	}
	for _, q := range quotes {
		out = append(out, Pattern{
			Name:        "attr-" + q.name,
			Description: "template attribute, " + q.name + " quoted",
			Kind:        Attr,
			Match:       regexp.MustCompile(`(?:^|[^:\w-])(?:v-t|x-text)\s*=\s*` + quoted(q.char)),
			Skip:        skipCalls,
			Group:       1,
		})
	}
	for _, q := range quotes {
		out = append(out, Pattern{
			Name:        "bound-attr-" + q.name,
			Description: "bound template attribute, " + q.name + " quoted",
			Kind:        BoundAttr,
			Match:       regexp.MustCompile(`(?::v-t|:x-text|v-bind:v-t|v-bind:x-text)\s*=\s*` + quoted(q.char)),
			Skip:        skipCalls,
			Group:       1,
		})
	}
	return out
}

// FindAll returns the raw captured literals of every match in text, in
// order of appearance. Literals are returned as written, escapes included.
func (p Pattern) FindAll(text string) []string {
	var skips [][]int
	if p.Skip != nil {
		skips = p.Skip.FindAllStringIndex(text, -1)
	}
	group := p.Group
	if group <= 0 {
		group = 1
	}

	var out []string
	for _, m := range p.Match.FindAllStringSubmatchIndex(text, -1) {
		if insideAny(m[0], skips) {
			continue
		}
		if 2*group+1 >= len(m) || m[2*group] < 0 {
			continue
		}
		out = append(out, text[m[2*group]:m[2*group+1]])
	}
	return out
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
		if s[0] > pos {
			break
		}
	}
	return false
}

// Keys runs every pattern over text and returns normalized keys in
// discovery order. Duplicates are kept; callers dedupe per file.
func Keys(text string, patterns []Pattern) []string {
	var out []string
	for _, p := range patterns {
		for _, raw := range p.FindAll(text) {
			if key := NormalizeKey(raw); key != "" {
				out = append(out, key)
			}
		}
	}
	return out
}

// NormalizeKey turns a captured literal into a catalog key: escapes are
// resolved, a wrapping translation call or quote pair is removed and path
// separators become dots.
func NormalizeKey(raw string) string {
	key := UnwrapAttribute(Unescape(raw))
	return strings.ReplaceAll(key, "/", ".")
}

var attrCalls = []*regexp.Regexp{
	regexp.MustCompile(`__\s*\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`trans\s*\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`trans_choice\s*\(\s*["']([^"']+)["']\s*`),
	regexp.MustCompile(`@lang\s*\(\s*["']([^"']+)["']\s*\)`),
}

// UnwrapAttribute extracts the key from an attribute value. It understands
// an inner translation call (__('k'), trans('k'), trans_choice('k', n),
// @lang('k')) and a quoted literal; anything else is returned trimmed.
func UnwrapAttribute(value string) string {
	for _, re := range attrCalls {
		if m := re.FindStringSubmatch(value); m != nil {
			return m[1]
		}
	}
	v := strings.TrimSpace(value)
	if len(v) >= 2 && isQuote(v[0]) && isQuote(v[len(v)-1]) {
		return v[1 : len(v)-1]
	}
	return v
}

func isQuote(c byte) bool { return c == '\'' || c == '"' }

// Unescape resolves C-style backslash escapes. Unknown escapes drop the
// backslash and keep the character.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// LoadPatterns reads custom extraction rules, one per line in the form
// PATTERN|DESCRIPTION|GROUP. DESCRIPTION and GROUP are optional; the
// pattern itself may contain "|". Blank lines and lines starting with "#"
// are ignored. Custom patterns use the default skip rule.
func LoadPatterns(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	var out []Pattern
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parsePatternLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		p.Name = fmt.Sprintf("custom-%d", lineNo)
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

func parsePatternLine(line string) (Pattern, error) {
	expr, desc, group := line, "", 1
	fields := strings.Split(line, "|")
	if n := len(fields); n >= 3 {
		if g, err := strconv.Atoi(strings.TrimSpace(fields[n-1])); err == nil {
			expr = strings.Join(fields[:n-2], "|")
			desc = strings.TrimSpace(fields[n-2])
			group = g
		}
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	if group < 1 || group > re.NumSubexp() {
		return Pattern{}, fmt.Errorf("pattern %q has no capture group %d", expr, group)
	}
	return Pattern{
		Description: desc,
		Kind:        Custom,
		Match:       re,
		Skip:        skipCalls,
		Group:       group,
	}, nil
}
