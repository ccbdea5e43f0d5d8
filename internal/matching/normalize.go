/**
 * @description
 * Text normalization and token-set similarity for fuzzy retrieval.
 * Query and stored text go through the same pipeline: lower-case, accents
 * stripped, punctuation stripped, whitespace collapsed.
 *
 * @dependencies
 * - golang.org/x/text: Unicode decomposition for accent stripping
 * - github.com/paul-mannino/go-fuzzywuzzy: token-set ratio
 */

package matching

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases s, strips accents and punctuation, and collapses
// whitespace. "Útiles de Escritorio, 2024" becomes "utiles de escritorio 2024".
func Normalize(s string) string {
	s = strings.ToLower(s)
	if stripped, _, err := transform.String(accentStripper, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SQLTerm prepares a query term for backend-side matching: lower-cased and
// trimmed, accents kept. Stored text keeps its accents, so both sides of a
// trigram comparison must too.
func SQLTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TokenSetRatio scores two already-raw strings with order-insensitive token
// set overlap. Result is in [0, 100].
func TokenSetRatio(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return fuzzy.TokenSetRatio(na, nb)
}

// Ratio is the plain edit-distance similarity of the normalized strings,
// in [0, 100].
func Ratio(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return fuzzy.Ratio(na, nb)
}
