package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) (*SQLStore, *sqlite.Client) {
	t.Helper()
	db, err := sqlite.Open("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := New(db, SQLite, 128)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s, db
}

func doc(ns, id string, weights map[string]int) index.Document {
	return index.Document{Ref: index.ContentRef{Kind: "post", ID: id, Namespace: ns}, Weights: weights}
}

func exact(tokens ...string) []index.TokenPredicate {
	out := make([]index.TokenPredicate, len(tokens))
	for i, t := range tokens {
		out[i] = index.TokenPredicate{Token: t, Match: index.MatchExact}
	}
	return out
}

func prefix(tokens ...string) []index.TokenPredicate {
	out := exact(tokens...)
	for i := range out {
		out[i].Match = index.MatchPrefix
	}
	return out
}

func allPostings(t *testing.T, s *SQLStore, ns string) index.PostingList {
	t.Helper()
	got, err := s.Postings(context.Background(), index.PostingQuery{Kind: "post", Namespace: ns, Word: "", Match: index.MatchPrefix})
	require.NoError(t, err)
	return got
}

func TestMigrateIsRepeatable(t *testing.T) {
	s, _ := newSQLiteStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	scope := index.Scope{Kind: "post", IDs: []string{"1", "2"}}
	docs := []index.Document{
		doc("", "1", map[string]int{"quick": 10, "fox": 2}),
		doc("", "2", map[string]int{"quick": 1}),
	}
	require.NoError(t, s.Replace(ctx, scope, docs))
	first := allPostings(t, s, "")
	require.Len(t, first, 3)

	require.NoError(t, s.Replace(ctx, scope, docs))
	assert.Equal(t, first, allPostings(t, s, ""))

	tokens, postings, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, tokens)
	assert.EqualValues(t, 3, postings)
}

func TestReplaceDuplicateDocumentKeepsLast(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{
		doc("", "1", map[string]int{"old": 1}),
		doc("", "1", map[string]int{"new": 4}),
	}))
	assert.Equal(t, index.PostingList{
		{Ref: index.ContentRef{Kind: "post", ID: "1"}, Word: "new", Weight: 4},
	}, allPostings(t, s, ""))
}

func TestReplaceRoundTripAfterDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{
		doc("", "1", map[string]int{"unique": 10, "shared": 1}),
		doc("", "2", map[string]int{"shared": 1}),
	}))
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post", IDs: []string{"1"}}, nil))

	hits, total, err := s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: exact("unique")})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, total)

	hits, _, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: exact("shared")})
	require.NoError(t, err)
	assert.Equal(t, []index.Hit{{ID: "2", Rank: 1}}, hits)
}

func TestReplaceRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s, db := newSQLiteStore(t)
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{doc("", "1", map[string]int{"old": 1})}))

	_, err := db.ExecContext(ctx, `CREATE TRIGGER reject_boom BEFORE INSERT ON fts_index
		WHEN NEW.object_id = 'boom' BEGIN SELECT RAISE(ABORT, 'boom rejected'); END`)
	require.NoError(t, err)

	err = s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{
		doc("", "1", map[string]int{"fresh": 1}),
		doc("", "boom", map[string]int{"fresh": 1}),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrStorageUnavailable)

	assert.Equal(t, index.PostingList{
		{Ref: index.ContentRef{Kind: "post", ID: "1"}, Word: "old", Weight: 1},
	}, allPostings(t, s, ""))
	_, ok := s.tokens.Get("fresh")
	assert.False(t, ok, "tokens of a rolled back transaction are not cached")
	tokens, _, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tokens)
}

func TestReplaceRejectsDocumentsOutsideScope(t *testing.T) {
	s, _ := newSQLiteStore(t)
	err := s.Replace(context.Background(), index.Scope{Kind: "post", Namespace: "blog"},
		[]index.Document{doc("wiki", "1", map[string]int{"x": 1})})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLookupOrCreateTokensConcurrent(t *testing.T) {
	ctx := context.Background()
	s, db := newSQLiteStore(t)
	// a second store on the same database has its own cache, like another process
	other, err := New(db, SQLite, 0)
	require.NoError(t, err)

	words := make([]string, 50)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	results := make([]map[string]index.Token, 8)
	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := s
			if i%2 == 1 {
				st = other
			}
			results[i], errs[i] = st.LookupOrCreateTokens(ctx, words)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	tokens, _, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(words), tokens)
}

func TestDistinctWordsAreSorted(t *testing.T) {
	docs := []index.Document{
		doc("", "1", map[string]int{"zebra": 1, "apple": 2, "mango": 4}),
		doc("", "2", map[string]int{"mango": 1, "kiwi": 10, "banana": 2}),
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{"apple", "banana", "kiwi", "mango", "zebra"}, distinctWords(docs))
	}
	assert.Empty(t, distinctWords(nil))
}

func TestLookupOrCreateTokensLargeBatch(t *testing.T) {
	s, _ := newSQLiteStore(t)
	words := make([]string, lookupBatch+insertBatch+7)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
	}
	got, err := s.LookupOrCreateTokens(context.Background(), words)
	require.NoError(t, err)
	assert.Len(t, got, len(words))
	seen := make(map[int64]bool)
	for _, tok := range got {
		assert.False(t, seen[tok.ID])
		seen[tok.ID] = true
	}
}

func seedSearch(t *testing.T, s *SQLStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{
		doc("", "a", map[string]int{"quick": 1, "fox": 1}),
		doc("", "b", map[string]int{"quick": 10, "brown": 4, "fox": 2}),
		doc("", "c", map[string]int{"quick": 4, "brown": 4}),
		doc("", "d", map[string]int{"test": 10, "tester": 2, "testing": 1}),
		doc("", "e", map[string]int{"test": 4}),
	}))
}

func TestSearchPlanConjunctive(t *testing.T) {
	s, _ := newSQLiteStore(t)
	seedSearch(t, s)
	hits, total, err := s.SearchPlan(context.Background(), &index.QueryPlan{Kind: "post", Predicates: exact("brown", "quick"), Rank: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []index.Hit{{ID: "b", Rank: 14}, {ID: "c", Rank: 8}}, hits)
}

func TestSearchPlanUnrankedOrderedByID(t *testing.T) {
	s, _ := newSQLiteStore(t)
	seedSearch(t, s)
	hits, _, err := s.SearchPlan(context.Background(), &index.QueryPlan{Kind: "post", Predicates: exact("quick")})
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSearchPlanPrefixSumsCollisions(t *testing.T) {
	s, _ := newSQLiteStore(t)
	seedSearch(t, s)
	hits, _, err := s.SearchPlan(context.Background(), &index.QueryPlan{Kind: "post", Predicates: prefix("test"), Rank: true})
	require.NoError(t, err)
	// d matches test, tester and testing: 10 + 2 + 1
	assert.Equal(t, []index.Hit{{ID: "d", Rank: 13}, {ID: "e", Rank: 4}}, hits)
}

func TestSearchPlanLimitAndMinRank(t *testing.T) {
	s, _ := newSQLiteStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	hits, total, err := s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: exact("quick"), Rank: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []index.Hit{{ID: "b", Rank: 10}}, hits)

	hits, total, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: exact("quick"), Rank: true, MinRank: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []index.Hit{{ID: "b", Rank: 10}, {ID: "c", Rank: 4}}, hits)
}

func TestSearchPlanNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post", Namespace: "blog"}, []index.Document{doc("blog", "1", map[string]int{"go": 10})}))
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post", Namespace: "wiki"}, []index.Document{doc("wiki", "1", map[string]int{"go": 1, "wiki": 1})}))

	hits, _, err := s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Namespace: "blog", Predicates: exact("go"), Rank: true})
	require.NoError(t, err)
	assert.Equal(t, []index.Hit{{ID: "1", Rank: 10}}, hits)

	hits, _, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Namespace: "blog", Predicates: exact("wiki")})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, _, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: exact("go")})
	require.NoError(t, err)
	assert.Empty(t, hits, "the default namespace is a partition of its own")
}

func TestSearchPlanEmpty(t *testing.T) {
	s, _ := newSQLiteStore(t)
	hits, total, err := s.SearchPlan(context.Background(), &index.QueryPlan{Kind: "post"})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Zero(t, total)
}

func TestHostileTokensAreBound(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	require.NoError(t, s.Replace(ctx, index.Scope{Kind: "post"}, []index.Document{
		doc("", "1", map[string]int{"a_c": 1, "o'neil": 2}),
		doc("", "2", map[string]int{"abc": 1, "50%": 1}),
	}))

	cases := []struct {
		name  string
		preds []index.TokenPredicate
		want  []string
	}{
		{"underscore is literal", prefix("a_"), []string{"1"}},
		{"percent is literal", prefix("5%"), nil},
		{"percent prefix", prefix("50%"), []string{"2"}},
		{"quote", exact("o'neil"), []string{"1"}},
		{"injection attempt", exact("x' OR '1'='1"), nil},
		{"statement injection", prefix("'; DROP TABLE fts_index; --"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hits, _, err := s.SearchPlan(ctx, &index.QueryPlan{Kind: "post", Predicates: tc.preds})
			require.NoError(t, err)
			var ids []string
			for _, h := range hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
	assert.Len(t, allPostings(t, s, ""), 4)
}

func TestCompilePlanPostgresPlaceholders(t *testing.T) {
	query, values := compilePlan(Postgres, &index.QueryPlan{
		Kind: "post", Namespace: "blog", Predicates: prefix("ru", "go"), Rank: true, MinRank: 3, Limit: 5,
	})
	assert.Len(t, values, 9)
	assert.Contains(t, query, "$9")
	assert.NotContains(t, query, "$10")
	assert.Contains(t, query, `LIKE $3 ESCAPE '\'`)
	assert.True(t, strings.HasSuffix(query, "LIMIT $9"))
	assert.Equal(t, "ru%", values[2])
	assert.NotContains(t, query, "ru%", "tokens never appear in the statement text")
}

func TestPrefixPattern(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\%`, prefixPattern(`a_b%c\`))
}
