// Package textnorm folds French text for matching: lowercase, no diacritics,
// collapsed whitespace.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Tokens splits folded text on anything that is not a letter or digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Jaccard is |A∩B| / |A∪B| over the token sets of a and b.
// Two empty inputs are identical.
func Jaccard(a, b string) float64 {
	sa := set(Tokens(a))
	sb := set(Tokens(b))
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func set(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ContainsAny reports whether folded s contains any of the folded needles.
func ContainsAny(s string, needles ...string) bool {
	f := Fold(s)
	for _, n := range needles {
		if n = Fold(n); n != "" && strings.Contains(f, n) {
			return true
		}
	}
	return false
}
