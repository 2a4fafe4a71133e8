package graph

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"unicode"
)

// corporateSuffixes are dropped during name normalization so that
// "Acme Corp." and "Acme Corporation" compare equal where possible.
var corporateSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"llc":          true,
	"llp":          true,
	"lp":           true,
	"ltd":          true,
	"limited":      true,
	"plc":          true,
	"gmbh":         true,
	"sa":           true,
	"ag":           true,
	"holdings":     true,
}

// NormalizeName lowercases, strips punctuation, collapses whitespace, and
// drops trailing corporate suffixes. The result is the merge key for exact
// entity matching.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '.' || r == ',' || r == '&' || r == '/':
			b.WriteRune(' ')
		}
		// All other punctuation is dropped entirely.
	}

	tokens := strings.Fields(b.String())

	// Trim corporate suffixes from the tail only: "Company of Friends"
	// keeps its leading token.
	for len(tokens) > 1 && corporateSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// NameSimilarity returns the token-set Jaccard similarity of two
// normalized names, in [0, 1].
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// resolvedID derives a deterministic, content-addressable id for a merged
// entity from its type and the set of constituent keys. The same
// constituents always produce the same id, regardless of merge order.
func resolvedID(typ EntityType, constituentKeys []string) string {
	canonical := string(typ) + ":" + strings.Join(constituentKeys, "|")
	hash := sha256.Sum256([]byte(canonical))
	return string(typ) + ":" + base64.RawURLEncoding.EncodeToString(hash[:12])
}
