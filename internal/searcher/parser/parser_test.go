package parser

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzer(t *testing.T, opts tokenizer.Options) *tokenizer.Analyzer {
	t.Helper()
	stops, err := tokenizer.NewStopwordTable(nil, "")
	require.NoError(t, err)
	stems, err := tokenizer.NewStemmerTable("snowball")
	require.NoError(t, err)
	a, err := tokenizer.NewAnalyzer(stops, stems, opts)
	require.NoError(t, err)
	return a
}

func TestParsePrefixByDefault(t *testing.T) {
	a := analyzer(t, tokenizer.Options{Language: "en", Stem: true})
	plan := Parse(a, "The Running  Cafés running", Options{Kind: "article", Namespace: "acme", Rank: true, Limit: 5})

	assert.Equal(t, "article", plan.Kind)
	assert.Equal(t, "acme", plan.Namespace)
	assert.True(t, plan.Rank)
	assert.Equal(t, 5, plan.Limit)
	assert.Equal(t, []string{"cafe", "run"}, Tokens(plan))
	for _, p := range plan.Predicates {
		assert.Equal(t, index.MatchPrefix, p.Match)
	}
}

func TestParseExactModes(t *testing.T) {
	full := analyzer(t, tokenizer.Options{Language: "en", FullIndex: true})
	plan := Parse(full, "rust", Options{Kind: "k"})
	require.Len(t, plan.Predicates, 1)
	assert.Equal(t, index.MatchExact, plan.Predicates[0].Match)
	assert.Equal(t, "rust", plan.Predicates[0].Token, "queries are not expanded into substrings")

	plain := analyzer(t, tokenizer.Options{Language: "en"})
	plan = Parse(plain, "rust", Options{Kind: "k", ExactSearch: true})
	require.Len(t, plan.Predicates, 1)
	assert.Equal(t, index.MatchExact, plan.Predicates[0].Match)
}

func TestParseEmpty(t *testing.T) {
	a := analyzer(t, tokenizer.Options{Language: "en"})
	for _, q := range []string{"", "   ", "the and of"} {
		plan := Parse(a, q, Options{Kind: "k", Limit: -3, MinRank: -1})
		assert.True(t, plan.IsEmpty(), q)
		assert.NotNil(t, plan.Predicates)
		assert.Zero(t, plan.Limit)
		assert.Zero(t, plan.MinRank)
	}
}
