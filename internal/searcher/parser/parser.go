// Package parser turns a raw query string into an index.QueryPlan.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/tokenizer"
)

// Options carries the collection settings and per-call knobs a plan needs.
type Options struct {
	Kind      string
	Namespace string
	// ExactSearch forces equality matching even without a full index.
	ExactSearch bool
	Rank        bool
	Limit       int
	MinRank     int
}

// Parse analyzes query the same way field text is analyzed at index time,
// without substring expansion, and builds a conjunctive plan over the
// resulting token set. A query with no surviving tokens yields an empty plan.
//
// Tokens are matched exactly when the collection keeps a full substring index
// (every substring is already a stored word) or when exact search is asked
// for; otherwise each token matches every stored word it prefixes.
func Parse(analyzer *tokenizer.Analyzer, query string, opts Options) *index.QueryPlan {
	plan := &index.QueryPlan{
		Kind:       opts.Kind,
		Namespace:  opts.Namespace,
		Predicates: make([]index.TokenPredicate, 0),
		Rank:       opts.Rank,
		Limit:      max(opts.Limit, 0),
		MinRank:    max(opts.MinRank, 0),
		RawQuery:   query,
	}

	match := index.MatchPrefix
	if analyzer.Options().FullIndex || opts.ExactSearch {
		match = index.MatchExact
	}
	for _, tok := range analyzer.QueryTokens(query) {
		plan.Predicates = append(plan.Predicates, index.TokenPredicate{Token: tok, Match: match})
	}
	return plan
}

// Tokens lists the plan's tokens in order.
func Tokens(plan *index.QueryPlan) []string {
	out := make([]string, len(plan.Predicates))
	for i, p := range plan.Predicates {
		out[i] = p.Token
	}
	return out
}
