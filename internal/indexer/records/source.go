package records

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
)

// Source loads the records of one kind. Fetch omits IDs that do not exist,
// so reindexing a deleted record clears its postings.
type Source interface {
	Fetch(ctx context.Context, namespace string, ids []string) ([]Record, error)
	All(ctx context.Context, namespace string) ([]Record, error)
}

// MemorySource keeps records in memory, keyed by namespace and ID.
type MemorySource struct {
	mu   sync.RWMutex
	data map[string]map[string]Record
}

func NewMemorySource() *MemorySource {
	return &MemorySource{data: make(map[string]map[string]Record)}
}

func (m *MemorySource) Put(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[r.Namespace] == nil {
		m.data[r.Namespace] = make(map[string]Record)
	}
	m.data[r.Namespace][r.ID] = r
}

func (m *MemorySource) Delete(namespace, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[namespace], id)
}

func (m *MemorySource) Fetch(_ context.Context, namespace string, ids []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.data[namespace][id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemorySource) All(_ context.Context, namespace string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.data[namespace]))
	for _, r := range m.data[namespace] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Querier is the read side of the postgres and sqlite clients.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLSource reads records from a table. Identifiers come from configuration
// and are validated and quoted; IDs and namespaces are bound.
type SQLSource struct {
	db        Querier
	dialect   store.Dialect
	table     string
	idColumn  string
	nsColumn  string
	columns   []string
	selectSQL string
}

// NewSQLSource reads columns (the top-level field names) from the table in
// src. Without a namespace column every row belongs to whichever namespace
// is requested.
func NewSQLSource(db Querier, dialect store.Dialect, src config.SourceConfig, columns []string) (*SQLSource, error) {
	idents := append([]string{src.Table, src.IDColumn}, columns...)
	if src.NamespaceColumn != "" {
		idents = append(idents, src.NamespaceColumn)
	}
	for _, id := range idents {
		if !config.ValidIdentifier(id) {
			return nil, fmt.Errorf("%w: invalid SQL identifier %q", apperrors.ErrConfiguration, id)
		}
	}
	quoted := make([]string, 0, len(columns)+1)
	quoted = append(quoted, quote(src.IDColumn))
	for _, c := range columns {
		quoted = append(quoted, quote(c))
	}
	return &SQLSource{
		db:        db,
		dialect:   dialect,
		table:     src.Table,
		idColumn:  src.IDColumn,
		nsColumn:  src.NamespaceColumn,
		columns:   columns,
		selectSQL: "SELECT " + strings.Join(quoted, ", ") + " FROM " + quote(src.Table),
	}, nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func (s *SQLSource) Fetch(ctx context.Context, namespace string, ids []string) ([]Record, error) {
	const batch = 500
	out := make([]Record, 0, len(ids))
	for start := 0; start < len(ids); start += batch {
		chunk := ids[start:min(start+batch, len(ids))]
		var values []any
		ph := make([]string, len(chunk))
		for i, id := range chunk {
			values = append(values, id)
			ph[i] = s.dialect.Placeholder(len(values))
		}
		query := s.selectSQL + " WHERE " + quote(s.idColumn) + " IN (" + strings.Join(ph, ", ") + ")"
		if s.nsColumn != "" {
			values = append(values, namespace)
			query += " AND " + quote(s.nsColumn) + " = " + s.dialect.Placeholder(len(values))
		}
		recs, err := s.query(ctx, namespace, query, values)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (s *SQLSource) All(ctx context.Context, namespace string) ([]Record, error) {
	query := s.selectSQL
	var values []any
	if s.nsColumn != "" {
		values = append(values, namespace)
		query += " WHERE " + quote(s.nsColumn) + " = " + s.dialect.Placeholder(1)
	}
	query += " ORDER BY " + quote(s.idColumn)
	return s.query(ctx, namespace, query, values)
}

func (s *SQLSource) query(ctx context.Context, namespace, query string, values []any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.table, err)
	}
	defer rows.Close()
	var out []Record
	dest := make([]any, len(s.columns)+1)
	for rows.Next() {
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}
		r := Record{
			ID:        fmt.Sprint(columnValue(*dest[0].(*any))),
			Namespace: namespace,
			Fields:    make(map[string]any, len(s.columns)),
		}
		for i, c := range s.columns {
			r.Fields[c] = columnValue(*dest[i+1].(*any))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.table, err)
	}
	return out, nil
}

// columnValue turns driver text into strings; other types pass through.
func columnValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
