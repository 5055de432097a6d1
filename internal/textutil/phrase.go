package textutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// InflectionSuffix is appended to a phrase root so gender and number variants
// ("obrigada", "obrigados", "boas") count toward the same root.
const InflectionSuffix = `(?:a|o|as|os)?s?`

// PhraseMatcher counts non-overlapping whole-word matches of a pattern.
type PhraseMatcher struct {
	expr string
	re   *regexp.Regexp
}

// RootPattern builds the default pattern for a phrase root: the normalized,
// quoted root followed by InflectionSuffix.
func RootPattern(root string) string {
	return regexp.QuoteMeta(Normalize(strings.TrimSpace(root))) + InflectionSuffix
}

// CompilePhrase compiles expr into a matcher. The expression must not match
// the empty string.
func CompilePhrase(expr string) (*PhraseMatcher, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("compile phrase: empty pattern")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile phrase %q: %w", expr, err)
	}
	if re.MatchString("") {
		return nil, fmt.Errorf("compile phrase %q: pattern matches empty text", expr)
	}
	return &PhraseMatcher{expr: expr, re: re}, nil
}

// String returns the source expression.
func (m *PhraseMatcher) String() string {
	if m == nil {
		return ""
	}
	return m.expr
}

// Count returns the number of non-overlapping matches in text that start and
// end on word boundaries. Candidates failing the boundary check are retried
// one rune further along, mirroring a backtracking `\b...\b` search.
func (m *PhraseMatcher) Count(text string) int {
	if m == nil || m.re == nil || text == "" {
		return 0
	}
	count := 0
	pos := 0
	for pos < len(text) {
		loc := m.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && atBoundary(text, start, end) {
			count++
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		pos = start + size
	}
	return count
}

func atBoundary(text string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) {
			return false
		}
	}
	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
