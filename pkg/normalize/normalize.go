// Package normalize maps free text to the comparison key used for tag
// canonicalization and search. Two strings that should be treated as the
// same tag or search term produce the same key.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that carry their "accent" as part of the base glyph, so NFD can't
// split them. Applied after case folding.
var foldedLetters = strings.NewReplacer(
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"æ", "ae",
	"œ", "oe",
	"ı", "i",
)

// Normalize folds case and diacritics and collapses whitespace. It never
// fails: input that can't be transformed is folded as far as possible.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}

	folded := foldedLetters.Replace(cases.Fold().String(stripped))
	return strings.Join(strings.Fields(folded), " ")
}

// Contains reports whether the already-normalized key contains query once
// query is normalized. An empty query matches everything.
func Contains(key, query string) bool {
	return strings.Contains(key, Normalize(query))
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
