package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes text to NFC and lower-cases it using Portuguese casing rules.
// A new Caser is built per call because cases.Caser keeps state between calls.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return cases.Lower(language.BrazilianPortuguese).String(norm.NFC.String(text))
}

// Fields splits normalized text on Unicode whitespace. Punctuation stays
// attached to its token ("nada," is one token).
func Fields(text string) []string {
	return strings.Fields(text)
}
