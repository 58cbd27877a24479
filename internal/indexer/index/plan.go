package index

import "context"

// MatchMode selects how a query token is compared with stored words.
type MatchMode int

const (
	// MatchExact requires the stored word to equal the token.
	MatchExact MatchMode = iota
	// MatchPrefix accepts every stored word starting with the token.
	MatchPrefix
)

func (m MatchMode) String() string {
	if m == MatchPrefix {
		return "prefix"
	}
	return "exact"
}

type TokenPredicate struct {
	Token string
	Match MatchMode
}

// QueryPlan is a conjunctive query: a record qualifies only when every
// predicate matches one of its postings in Kind/Namespace. Rank is the sum of
// the weights of all matching postings.
type QueryPlan struct {
	Kind       string
	Namespace  string
	Predicates []TokenPredicate
	Rank       bool
	// Limit caps the returned hits after ordering; 0 means no cap.
	Limit int
	// MinRank drops hits whose rank is below it; 0 disables the cutoff.
	MinRank  int
	RawQuery string
}

// IsEmpty reports whether the plan can only produce an empty result.
func (p *QueryPlan) IsEmpty() bool {
	return len(p.Predicates) == 0
}

// PostingQuery selects the postings of one token within a partition.
type PostingQuery struct {
	Kind      string
	Namespace string
	Word      string
	Match     MatchMode
}

// Hit is one qualifying record.
type Hit struct {
	ID   string `json:"id"`
	Rank int    `json:"rank,omitempty"`
}

// Store persists the vocabulary and postings.
type Store interface {
	// Replace removes every posting in scope and writes docs, all or
	// nothing. Every document must lie inside scope.
	Replace(ctx context.Context, scope Scope, docs []Document) error
	// LookupOrCreateTokens returns a token for every word, creating the
	// missing ones. Concurrent creators of one word get the same token.
	LookupOrCreateTokens(ctx context.Context, words []string) (map[string]Token, error)
	Postings(ctx context.Context, q PostingQuery) (PostingList, error)
}

// PlanSearcher is implemented by stores that evaluate a whole QueryPlan
// natively. Hits come back ordered (rank desc then ID when ranking, ID
// otherwise), cut at MinRank and Limit, together with the uncapped count.
type PlanSearcher interface {
	SearchPlan(ctx context.Context, plan *QueryPlan) (hits []Hit, total int, err error)
}
