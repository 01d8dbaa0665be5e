// Package lexicon provides the word-boundary phrase matching and ordered rule
// tables that every classification stage of the chat pipeline is built on.
package lexicon

import (
	"regexp"
	"sort"
	"strings"
)

// Rule reports whether text matches and, if it does, which phrase matched.
type Rule interface {
	Match(text string) (string, bool)
}

// Matcher matches a fixed set of phrases case-insensitively on word
// boundaries, so "kill" never matches inside "skilling".
type Matcher struct {
	phrases   []string
	canonical map[string]string
	re        *regexp.Regexp
}

// Phrases compiles the given phrases into a single Matcher. Multi-word phrases
// tolerate any run of whitespace between their words.
func Phrases(phrases ...string) *Matcher {
	m := &Matcher{canonical: make(map[string]string, len(phrases))}

	sorted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		key := normalize(p)
		if key == "" {
			continue
		}
		if _, seen := m.canonical[key]; seen {
			continue
		}
		m.canonical[key] = key
		m.phrases = append(m.phrases, key)
		sorted = append(sorted, key)
	}

	// Longest first: Go alternation is leftmost-first, so this reports the
	// most specific phrase at a given position.
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	alts := make([]string, len(sorted))
	for i, p := range sorted {
		words := strings.Fields(p)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	if len(alts) > 0 {
		m.re = regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	}
	return m
}

// Match implements Rule.
func (m *Matcher) Match(text string) (string, bool) {
	if m.re == nil {
		return "", false
	}
	hit := m.re.FindString(text)
	if hit == "" {
		return "", false
	}
	if p, ok := m.canonical[normalize(hit)]; ok {
		return p, true
	}
	return normalize(hit), true
}

// List returns the normalized phrases in declaration order.
func (m *Matcher) List() []string {
	out := make([]string, len(m.phrases))
	copy(out, m.phrases)
	return out
}

// Pattern is a Rule backed by a raw regular expression. It is used where a
// plain phrase list cannot express the cue, for example "month name followed
// by a year".
type Pattern struct {
	name string
	re   *regexp.Regexp
}

// Regexp compiles expr case-insensitively. name is reported as the matched
// phrase.
func Regexp(name, expr string) Pattern {
	return Pattern{name: name, re: regexp.MustCompile(`(?i)` + expr)}
}

// Match implements Rule.
func (p Pattern) Match(text string) (string, bool) {
	if p.re.MatchString(text) {
		return p.name, true
	}
	return "", false
}

// Func adapts a predicate to a Rule.
type Func struct {
	Name string
	Fn   func(text string) bool
}

// Match implements Rule.
func (f Func) Match(text string) (string, bool) {
	if f.Fn(text) {
		return f.Name, true
	}
	return "", false
}

type anyRule []Rule

// Any matches when any of rules matches; the first matching rule wins.
func Any(rules ...Rule) Rule {
	return anyRule(rules)
}

func (a anyRule) Match(text string) (string, bool) {
	for _, r := range a {
		if p, ok := r.Match(text); ok {
			return p, true
		}
	}
	return "", false
}

func (a anyRule) List() []string {
	var out []string
	for _, r := range a {
		if l, ok := r.(interface{ List() []string }); ok {
			out = append(out, l.List()...)
		}
	}
	return out
}

// Entry pairs a label with the rule that selects it.
type Entry[L comparable] struct {
	Label L
	Rule  Rule
}

// Table is an ordered, versioned list of (rule, label) pairs evaluated in a
// single pass. The first matching entry wins.
type Table[L comparable] struct {
	Version string
	entries []Entry[L]
}

// NewTable builds a table. Entry order is the precedence order.
func NewTable[L comparable](version string, entries ...Entry[L]) *Table[L] {
	return &Table[L]{Version: version, entries: entries}
}

// First returns the label of the first matching entry and the phrase that
// matched it.
func (t *Table[L]) First(text string) (L, string, bool) {
	for _, e := range t.entries {
		if p, ok := e.Rule.Match(text); ok {
			return e.Label, p, true
		}
	}
	var zero L
	return zero, "", false
}

// Labels returns the labels in precedence order.
func (t *Table[L]) Labels() []L {
	out := make([]L, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Label
	}
	return out
}

// Duplicates reports every phrase that is claimed by more than one label of
// the table. Only phrase-list rules take part; regular expressions are opaque.
func (t *Table[L]) Duplicates() map[string][]L {
	owners := make(map[string][]L)
	for _, e := range t.entries {
		l, ok := e.Rule.(interface{ List() []string })
		if !ok {
			continue
		}
		for _, p := range l.List() {
			if !containsLabel(owners[p], e.Label) {
				owners[p] = append(owners[p], e.Label)
			}
		}
	}
	dups := make(map[string][]L)
	for p, labels := range owners {
		if len(labels) > 1 {
			dups[p] = labels
		}
	}
	return dups
}

func containsLabel[L comparable](labels []L, l L) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
