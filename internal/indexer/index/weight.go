package index

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

// Tier is a field importance marker. A is the most important.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

var tierValues = map[Tier]int{
	TierA: 10,
	TierB: 4,
	TierC: 2,
	TierD: 1,
}

// Value is the numeric weight stored with postings; 0 for an unknown tier.
func (t Tier) Value() int {
	return tierValues[t]
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := tierValues[t]; !ok {
		return "", fmt.Errorf("%w: weight %q is not one of A, B, C, D", apperrors.ErrConfiguration, s)
	}
	return t, nil
}

// WeightedTokens are the tokens one field produced, tagged with its tier.
type WeightedTokens struct {
	Tokens []string
	Tier   Tier
}

// ResolveWeights keeps, for each distinct token, the highest tier value among
// the fields that produced it.
func ResolveWeights(fields ...WeightedTokens) map[string]int {
	out := make(map[string]int)
	for _, f := range fields {
		v := f.Tier.Value()
		for _, tok := range f.Tokens {
			if v > out[tok] {
				out[tok] = v
			}
		}
	}
	return out
}
