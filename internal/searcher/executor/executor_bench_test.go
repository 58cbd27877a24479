package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
)

// BenchmarkExecuteMemory measures end-to-end evaluation of two-token prefix
// queries over an in-memory index.
func BenchmarkExecuteMemory(b *testing.B) {
	ctx := context.Background()
	for _, n := range []int{1000, 10000} {
		mem := index.NewMemoryIndex()
		docs := make([]index.Document, n)
		for i := range docs {
			weights := map[string]int{"distributed": 10, "search": (i % 4) + 1}
			weights[fmt.Sprintf("word%d", i%50)] = 2
			docs[i] = doc("", fmt.Sprintf("doc-%d", i), weights)
		}
		if err := mem.Replace(ctx, index.Scope{Kind: "post"}, docs); err != nil {
			b.Fatal(err)
		}
		exec := New(mem, Config{Generic: true})
		p := plan(index.MatchPrefix, true, "dist", "word1")
		p.Limit = 10

		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Execute(ctx, p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
