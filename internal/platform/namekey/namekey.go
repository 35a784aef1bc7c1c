package namekey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes to NFKD, drops combining marks, and recomposes.
// "Muñoz" and "Munoz" normalize to the same key.
var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize derives the canonical lookup key for a raw display name.
//
// It never fails: garbage in yields an empty or minimal key, and callers are
// expected to reject empties before storing anything. Case is folded,
// diacritics are stripped, runs of whitespace collapse to a single space, and
// punctuation is dropped except for hyphens and apostrophes between letters
// ("O'Brien", "Saint-Maximin").
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	folded, _, err := transform.String(foldTransformer, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	rs := []rune(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '\'':
			if isInternalPunct(rs, i) {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits a normalized key into its name parts.
func Tokens(key string) []string {
	return strings.Fields(key)
}

func isInternalPunct(rs []rune, i int) bool {
	if i == 0 || i == len(rs)-1 {
		return false
	}
	return unicode.IsLetter(rs[i-1]) && unicode.IsLetter(rs[i+1])
}
