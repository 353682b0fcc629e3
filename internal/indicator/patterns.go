package indicator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// EvidenceOptions controls snippet extraction around pattern matches.
type EvidenceOptions struct {
	// ContextChars is the number of characters kept on each side of a match.
	ContextChars int `yaml:"context_chars"`
	// MaxSnippets caps the evidence list of a single finding.
	MaxSnippets int `yaml:"max_evidence"`
}

// DefaultEvidenceOptions returns a 100 character window and three snippets.
func DefaultEvidenceOptions() EvidenceOptions {
	return EvidenceOptions{
		ContextChars: 100,
		MaxSnippets:  3,
	}
}

func (o EvidenceOptions) normalized() EvidenceOptions {
	def := DefaultEvidenceOptions()
	if o.ContextChars < 0 {
		o.ContextChars = def.ContextChars
	}
	if o.MaxSnippets <= 0 || o.MaxSnippets > def.MaxSnippets {
		o.MaxSnippets = def.MaxSnippets
	}
	return o
}

// PatternSet maps rule categories to ordered, case-insensitive patterns.
// It is immutable once built and safe for concurrent use.
type PatternSet struct {
	order    []string
	patterns map[string][]*regexp.Regexp
}

// NewPatternSet creates an empty pattern set.
func NewPatternSet() *PatternSet {
	return &PatternSet{
		patterns: make(map[string][]*regexp.Regexp),
	}
}

// MustAdd compiles exprs case-insensitively and appends them to category.
// It panics on an invalid expression; tables are compiled at construction.
func (ps *PatternSet) MustAdd(category string, exprs ...string) *PatternSet {
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			panic(fmt.Sprintf("indicator: compiling %s pattern %q: %v", category, expr, err))
		}
		if _, ok := ps.patterns[category]; !ok {
			ps.order = append(ps.order, category)
		}
		ps.patterns[category] = append(ps.patterns[category], re)
	}
	return ps
}

// Categories returns the rule categories in insertion order.
func (ps *PatternSet) Categories() []string {
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

// Patterns returns the source expressions of a category.
func (ps *PatternSet) Patterns(category string) []string {
	res := ps.patterns[category]
	out := make([]string, 0, len(res))
	for _, re := range res {
		out = append(out, strings.TrimPrefix(re.String(), "(?i)"))
	}
	return out
}

// Fires reports whether any pattern of category matches the lower-cased text.
func (ps *PatternSet) Fires(category, text string) bool {
	lowered := strings.ToLower(text)
	for _, re := range ps.patterns[category] {
		if re.MatchString(lowered) {
			return true
		}
	}
	return false
}

// Evidence re-scans the original text and returns the trimmed context window
// of every match, pattern by pattern, capped at opts.MaxSnippets.
func (ps *PatternSet) Evidence(category, text string, opts EvidenceOptions) []string {
	opts = opts.normalized()
	snippets := make([]string, 0, opts.MaxSnippets)

	for _, re := range ps.patterns[category] {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			snippets = append(snippets, Window(text, loc[0], loc[1], opts.ContextChars))
			if len(snippets) == opts.MaxSnippets {
				return snippets
			}
		}
	}
	return snippets
}

// Window returns text[start:end] widened by up to n characters on each side,
// clamped to the text bounds and trimmed of surrounding whitespace. Offsets
// are byte offsets; the widening counts runes.
func Window(text string, start, end, n int) string {
	from := start
	for i := 0; i < n && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}

	to := end
	for i := 0; i < n && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	return strings.TrimSpace(text[from:to])
}
