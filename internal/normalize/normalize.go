package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Punctuation is the set of characters removed when building a key.
const Punctuation = "!@#$%^&*()_-+={}[]|\\:;'<>,.?/~`"

func dropped(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(Punctuation, r)
}

// Key returns the comparison key for s. It is total and idempotent.
func Key(s string) string {
	// Transformers carry state, so each call gets its own chain.
	t := transform.Chain(runes.Remove(runes.Predicate(dropped)), cases.Lower(language.Und))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(strings.Map(func(r rune) rune {
			if dropped(r) {
				return -1
			}
			return r
		}, s))
	}
	return out
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
