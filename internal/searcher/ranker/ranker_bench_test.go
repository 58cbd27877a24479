package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
)

// BenchmarkRank measures weight summing and ordering for candidate sets of
// different sizes, with and without a limit.
func BenchmarkRank(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		postings := map[string]index.PostingList{"search": make(index.PostingList, 0, n), "sea": make(index.PostingList, 0, n)}
		candidates := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("doc-%d", i)
			candidates[id] = struct{}{}
			postings["search"] = append(postings["search"], posting(id, "search", (i%4)+1))
			postings["sea"] = append(postings["sea"], posting(id, "searching", 1))
		}

		for _, limit := range []int{0, 10} {
			b.Run(fmt.Sprintf("docs_%d/limit_%d", n, limit), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					Rank(postings, candidates, Options{Rank: true, Limit: limit})
				}
			})
		}
	}
}
