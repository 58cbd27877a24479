// Package ranker scores candidate records by summing the weights of their
// matching postings and orders the hits.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
)

type Options struct {
	Rank    bool
	Limit   int
	MinRank int
}

// Rank sums, per candidate, the weight of every posting in postingsPerToken.
// A prefix token contributes once per stored word it matched. Hits below
// MinRank are dropped; total counts the survivors before Limit applies.
// Ranked hits are ordered by rank descending with ties broken by ID; unranked
// hits are ordered by ID.
func Rank(postingsPerToken map[string]index.PostingList, candidates map[string]struct{}, opts Options) (hits []index.Hit, total int) {
	scores := make(map[string]int, len(candidates))
	for _, postings := range postingsPerToken {
		for _, p := range postings {
			if _, ok := candidates[p.Ref.ID]; ok {
				scores[p.Ref.ID] += p.Weight
			}
		}
	}

	hits = make([]index.Hit, 0, len(scores))
	for id, score := range scores {
		if score < opts.MinRank {
			continue
		}
		hits = append(hits, index.Hit{ID: id, Rank: score})
	}
	total = len(hits)

	less := ByID
	if opts.Rank {
		less = ByRank
	}
	if opts.Limit > 0 && opts.Limit < len(hits) {
		hits = TopK(hits, opts.Limit, less)
	} else {
		sort.Slice(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
	}
	return hits, total
}

// ByRank orders by rank descending, then ID ascending.
func ByRank(a, b index.Hit) bool {
	if a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	return a.ID < b.ID
}

func ByID(a, b index.Hit) bool {
	return a.ID < b.ID
}
