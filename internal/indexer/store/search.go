package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
)

// compilePlan renders plan as one statement. Each predicate becomes a grouped
// sub-select yielding (object_id, summed weight); a record qualifies when it
// appears in as many sub-selects as there are predicates.
func compilePlan(d Dialect, plan *index.QueryPlan) (string, []any) {
	a := &args{d: d}
	parts := make([]string, len(plan.Predicates))
	for i, p := range plan.Predicates {
		parts[i] = `SELECT i.object_id, SUM(i.weight) AS weight
			FROM fts_index i JOIN fts_word w ON w.id = i.word_id
			WHERE i.kind = ` + a.add(plan.Kind) + ` AND i.namespace = ` + a.add(plan.Namespace) +
			` AND ` + wordPredicate(a, p.Token, p.Match) + `
			GROUP BY i.object_id`
	}

	var b strings.Builder
	b.WriteString("SELECT object_id, CAST(SUM(weight) AS BIGINT) AS score, COUNT(*) OVER () AS total FROM (\n")
	b.WriteString(strings.Join(parts, "\nUNION ALL\n"))
	b.WriteString("\n) matched GROUP BY object_id HAVING COUNT(*) = ")
	b.WriteString(a.add(len(plan.Predicates)))
	if plan.MinRank > 0 {
		b.WriteString(" AND SUM(weight) >= ")
		b.WriteString(a.add(plan.MinRank))
	}
	if plan.Rank {
		b.WriteString(" ORDER BY score DESC, object_id ASC")
	} else {
		b.WriteString(" ORDER BY object_id ASC")
	}
	if plan.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(a.add(plan.Limit))
	}
	return b.String(), a.values
}

// SearchPlan evaluates plan in the database.
func (s *SQLStore) SearchPlan(ctx context.Context, plan *index.QueryPlan) ([]index.Hit, int, error) {
	hits := []index.Hit{}
	if plan.IsEmpty() {
		return hits, 0, nil
	}
	query, values := compilePlan(s.dialect, plan)
	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, 0, s.wrap("searching", err)
	}
	defer rows.Close()
	var total int64
	for rows.Next() {
		var h index.Hit
		var score int64
		if err := rows.Scan(&h.ID, &score, &total); err != nil {
			return nil, 0, fmt.Errorf("scanning hit: %w", err)
		}
		h.Rank = int(score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.wrap("searching", err)
	}
	return hits, int(total), nil
}
