package metrics

import (
	"fmt"
	"strings"

	"recogni/internal/textutil"
)

// DefaultRoots lists the courtesy phrases tracked when no table is configured.
var DefaultRoots = []string{
	"obrigado",
	"por favor",
	"desculpa",
	"boa",
	"agradeço",
	"gratidão",
	"sinto muito",
	"perdão",
	"com licença",
}

// Phrase is one magic-phrase entry. Pattern is a regular expression matched
// against normalized text; when empty the root plus the inflection suffix is used.
type Phrase struct {
	Root    string
	Pattern string
}

// PhraseTable is an ordered, compiled set of phrases. It holds no counts.
type PhraseTable struct {
	entries []phraseEntry
}

type phraseEntry struct {
	root    string
	matcher *textutil.PhraseMatcher
}

// NewPhraseTable compiles phrases in order. Roots are normalized; duplicate
// roots and invalid patterns are rejected.
func NewPhraseTable(phrases []Phrase) (PhraseTable, error) {
	table := PhraseTable{entries: make([]phraseEntry, 0, len(phrases))}
	seen := make(map[string]struct{}, len(phrases))
	for i, phrase := range phrases {
		root := textutil.Normalize(strings.TrimSpace(phrase.Root))
		if root == "" {
			return PhraseTable{}, fmt.Errorf("phrase %d: empty root", i)
		}
		if _, dup := seen[root]; dup {
			return PhraseTable{}, fmt.Errorf("phrase %q: duplicate root", root)
		}
		seen[root] = struct{}{}

		expr := strings.TrimSpace(phrase.Pattern)
		if expr == "" {
			expr = textutil.RootPattern(root)
		}
		matcher, err := textutil.CompilePhrase(expr)
		if err != nil {
			return PhraseTable{}, fmt.Errorf("phrase %q: %w", root, err)
		}
		table.entries = append(table.entries, phraseEntry{root: root, matcher: matcher})
	}
	return table, nil
}

// DefaultPhraseTable returns the table built from DefaultRoots.
func DefaultPhraseTable() PhraseTable {
	table, err := NewPhraseTable(RootPhrases(DefaultRoots))
	if err != nil {
		panic(err)
	}
	return table
}

// RootPhrases wraps plain roots as phrases with default patterns.
func RootPhrases(roots []string) []Phrase {
	out := make([]Phrase, 0, len(roots))
	for _, root := range roots {
		out = append(out, Phrase{Root: root})
	}
	return out
}

// Roots returns the normalized roots in table order.
func (t PhraseTable) Roots() []string {
	out := make([]string, len(t.entries))
	for i, entry := range t.entries {
		out[i] = entry.root
	}
	return out
}

// Len returns the number of phrases.
func (t PhraseTable) Len() int {
	return len(t.entries)
}

// Pattern returns the compiled expression for root.
func (t PhraseTable) Pattern(root string) (string, bool) {
	for _, entry := range t.entries {
		if entry.root == root {
			return entry.matcher.String(), true
		}
	}
	return "", false
}
