// Package matcher builds and runs a multi-pattern substring matcher
// over canonicalized candidate text, the Go counterpart of the original
// client's aho_corasick::trie-based matcher (matcher.hpp).
package matcher

import (
	"fmt"
	"strings"

	"github.com/coregx/ahocorasick"
)

// Rule is one configured keyword. Matching is always case-insensitive;
// a Matcher stores and reports each Pattern in canonicalized form.
type Rule struct {
	Pattern string
}

// Matcher holds a built automaton over a fixed rule set. It is safe for
// concurrent use by multiple goroutines once built.
type Matcher struct {
	rules     []Rule
	automaton *ahocorasick.Automaton
}

// New builds a Matcher from the given rules. Patterns are canonicalized
// (lower-cased) before being added to the automaton so matching is
// case-insensitive without per-call allocation of variants.
func New(rules []Rule) (*Matcher, error) {
	b := ahocorasick.NewBuilder()
	canonical := make([]Rule, len(rules))
	for i, r := range rules {
		canonical[i] = Rule{Pattern: Canonicalize(r.Pattern)}
		b.AddPattern([]byte(canonical[i].Pattern))
	}

	automaton, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("matcher: build automaton: %w", err)
	}

	return &Matcher{rules: canonical, automaton: automaton}, nil
}

// Canonicalize reduces a string to the case-insensitive form matching
// operates on: Unicode lower-casing, no locale. This is the Go
// equivalent of the original client's to_canonical/to_lower.
func Canonicalize(s string) string {
	return strings.ToLower(s)
}

// Hit is one match of a rule's pattern within canonicalized haystack.
type Hit struct {
	RuleIndex int
	Pattern   string
	Start     int
	End       int
}

// MatchesAny reports whether canonicalized text contains any pattern at
// all, without collecting positions. Mirrors matcher::matches_any.
func (m *Matcher) MatchesAny(text string) bool {
	return m.automaton.IsMatch([]byte(Canonicalize(text)))
}

// Matches returns pattern occurrences in text, including matches that
// overlap one another from different start offsets. After each hit the
// search resumes one byte past that hit's start, so at most one hit is
// reported per start offset: when several patterns begin at the same
// offset (e.g. "cat" and "category" in "category"), only the one the
// automaton's Find returns is reported.
func (m *Matcher) Matches(text string) []Hit {
	haystack := []byte(Canonicalize(text))

	var hits []Hit
	at := 0
	for at <= len(haystack) {
		match := m.automaton.Find(haystack, at)
		if match == nil {
			break
		}
		hits = append(hits, Hit{
			RuleIndex: match.Pattern,
			Pattern:   m.rules[match.Pattern].Pattern,
			Start:     match.Start,
			End:       match.End,
		})
		at = match.Start + 1
	}
	return hits
}
