package tokenizer

// Substrings returns every contiguous substring of token longer than minLen
// runes, the token itself included, without duplicates. A token of L runes
// yields O(L²) substrings.
func Substrings(token string, minLen int) []string {
	if minLen < 0 {
		minLen = 0
	}
	rs := []rune(token)
	if len(rs) <= minLen {
		return []string{}
	}
	out := make([]string, 0, len(rs)*(len(rs)+1)/2)
	seen := make(map[string]struct{}, cap(out))
	for i := range rs {
		for j := i + minLen + 1; j <= len(rs); j++ {
			s := string(rs[i:j])
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
