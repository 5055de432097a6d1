// Package textutil provides the text normalisation shared by transcript analysis.
//
// The primary use cases are:
//   - Lower-casing recognized speech the same way for word counting and phrase matching
//   - Splitting normalized text into whitespace-delimited tokens
//   - Counting whole-word phrase matches with Unicode-aware word boundaries
//
// Go's regexp `\b` only understands ASCII word characters, which breaks boundaries
// around accented Portuguese letters. PhraseMatcher applies the boundary check on
// runes instead, so "perdão" and "agradeço" behave like their ASCII neighbours.
package textutil
