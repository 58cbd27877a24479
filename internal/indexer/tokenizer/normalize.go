package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips combining marks, lowercases and splits text on runs of
// whitespace. Duplicates are collapsed, keeping first-seen order. Empty input
// yields an empty (non-nil) slice.
func Normalize(text string) []string {
	words := strings.Fields(Fold(text))
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Fold removes diacritics and lowercases s without splitting it.
func Fold(s string) string {
	if s == "" {
		return s
	}
	// transform.Chain keeps state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
