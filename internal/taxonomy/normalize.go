// Package taxonomy implements the four-tier mapping cascade from raw
// CV terms to canonical taxonomy ids, and the dynamic alias loader
// that keeps the in-memory cascade's first tier warm.
package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize folds a raw term for alias lookup: NFD decompose, drop
// Mn-category combining marks, lowercase, collapse whitespace.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(folded), " ")
}

// Normalize is the exported form of normalize, used by the relational
// writer to compute the unmatched-items table's dedup key
// (candidate, type, normalized_value) and by the CV structurer to
// accent-strip identity names.
func Normalize(s string) string { return normalize(s) }
