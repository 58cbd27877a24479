package index

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(kind, ns, id string, weights map[string]int) Document {
	return Document{Ref: ContentRef{Kind: kind, ID: id, Namespace: ns}, Weights: weights}
}

func TestResolveWeightsKeepsHighestTier(t *testing.T) {
	got := ResolveWeights(
		WeightedTokens{Tokens: []string{"rust", "lang"}, Tier: TierC},
		WeightedTokens{Tokens: []string{"rust"}, Tier: TierA},
		WeightedTokens{Tokens: []string{"lang", "rust"}, Tier: TierD},
	)
	assert.Equal(t, map[string]int{"rust": 10, "lang": 2}, got)
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" b ")
	require.NoError(t, err)
	assert.Equal(t, TierB, tier)
	assert.Equal(t, 4, tier.Value())

	_, err = ParseTier("E")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestScope(t *testing.T) {
	all := Scope{Kind: "post", Namespace: "blog"}
	assert.True(t, all.IsAll())
	assert.True(t, all.Contains(ContentRef{Kind: "post", ID: "9", Namespace: "blog"}))
	assert.False(t, all.Contains(ContentRef{Kind: "post", ID: "9", Namespace: "wiki"}))

	some := Scope{Kind: "post", IDs: []string{"1", "2"}}
	assert.True(t, some.Contains(ContentRef{Kind: "post", ID: "2"}))
	assert.False(t, some.Contains(ContentRef{Kind: "post", ID: "3"}))

	assert.ErrorIs(t, Scope{}.Validate(), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, Scope{Kind: "post", IDs: []string{""}}.Validate(), apperrors.ErrInvalidInput)
}

func TestMemoryIndexReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	scope := Scope{Kind: "post", IDs: []string{"1"}}
	docs := []Document{doc("post", "", "1", map[string]int{"quick": 10, "fox": 2})}

	require.NoError(t, m.Replace(ctx, scope, docs))
	first := m.Snapshot("post", "")
	require.NoError(t, m.Replace(ctx, scope, docs))
	assert.Equal(t, first, m.Snapshot("post", ""))
	assert.Equal(t, 2, m.PostingCount())
	assert.Equal(t, 2, m.TokenCount())
}

func TestMemoryIndexReplaceRemovesStalePostings(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	require.NoError(t, m.Replace(ctx, Scope{Kind: "post"}, []Document{
		doc("post", "", "1", map[string]int{"old": 1}),
		doc("post", "", "2", map[string]int{"keep": 1}),
	}))
	require.NoError(t, m.Replace(ctx, Scope{Kind: "post", IDs: []string{"1"}}, nil))

	got, err := m.Postings(ctx, PostingQuery{Kind: "post", Word: "old"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, m.RecordCount("post", ""))
	assert.Equal(t, 2, m.TokenCount(), "vocabulary is never garbage collected")
}

func TestMemoryIndexRejectsDocumentsOutsideScope(t *testing.T) {
	m := NewMemoryIndex()
	err := m.Replace(context.Background(), Scope{Kind: "post", IDs: []string{"1"}},
		[]Document{doc("post", "", "2", map[string]int{"x": 1})})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, m.PostingCount())
}

func TestMemoryIndexNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	require.NoError(t, m.Replace(ctx, Scope{Kind: "post", Namespace: "blog"}, []Document{doc("post", "blog", "1", map[string]int{"go": 10})}))
	require.NoError(t, m.Replace(ctx, Scope{Kind: "post", Namespace: "wiki"}, []Document{doc("post", "wiki", "1", map[string]int{"go": 1})}))

	got, err := m.Postings(ctx, PostingQuery{Kind: "post", Namespace: "blog", Word: "go"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Weight)
	assert.Equal(t, "blog", got[0].Ref.Namespace)

	require.NoError(t, m.Replace(ctx, Scope{Kind: "post", Namespace: "wiki"}, nil))
	got, err = m.Postings(ctx, PostingQuery{Kind: "post", Namespace: "blog", Word: "go"})
	require.NoError(t, err)
	assert.Len(t, got, 1, "clearing one namespace leaves the other intact")
}

func TestMemoryIndexPrefixPostings(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	require.NoError(t, m.Replace(ctx, Scope{Kind: "post"}, []Document{
		doc("post", "", "1", map[string]int{"test": 10, "tester": 2}),
		doc("post", "", "2", map[string]int{"tea": 1}),
	}))

	got, err := m.Postings(ctx, PostingQuery{Kind: "post", Word: "test", Match: MatchPrefix})
	require.NoError(t, err)
	assert.Equal(t, PostingList{
		{Ref: ContentRef{Kind: "post", ID: "1"}, Word: "test", Weight: 10},
		{Ref: ContentRef{Kind: "post", ID: "1"}, Word: "tester", Weight: 2},
	}, got)

	got, err = m.Postings(ctx, PostingQuery{Kind: "post", Word: "te"})
	require.NoError(t, err)
	assert.Empty(t, got, "exact match does not expand")
}

func TestMemoryIndexConcurrentTokenCreation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	var wg sync.WaitGroup
	ids := make([]int64, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			toks, err := m.LookupOrCreateTokens(ctx, []string{"shared", "other"})
			if err == nil {
				ids[i] = toks["shared"].ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 2, m.TokenCount())
}
