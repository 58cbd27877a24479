// Package store keeps the index in a relational database: a vocabulary table
// (fts_word) and a posting table (fts_index). Every token string reaches the
// database as a bound parameter.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

const (
	// lookupBatch bounds the IN lists used to resolve words.
	lookupBatch = 500
	// insertBatch is the number of rows per multi-row INSERT.
	insertBatch = 100
)

// Database is implemented by the postgres and sqlite clients.
type Database interface {
	queryer
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	PingContext(ctx context.Context) error
}

// queryer is satisfied by both a Database and a *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type SQLStore struct {
	db      Database
	dialect Dialect
	// tokens caches committed word -> id pairs; nil when disabled.
	tokens *lru.Cache[string, int64]
	logger *slog.Logger
}

var (
	_ index.Store        = (*SQLStore)(nil)
	_ index.PlanSearcher = (*SQLStore)(nil)
)

// New creates a store. cacheSize <= 0 disables the token id cache.
func New(db Database, dialect Dialect, cacheSize int) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "index-store", "dialect", dialect.Name),
	}
	if cacheSize > 0 {
		c, err := lru.New[string, int64](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
		s.tokens = c
	}
	return s, nil
}

// Migrate creates the index tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.wrap("migrating schema", err)
		}
	}
	s.logger.Info("index schema ready")
	return nil
}

func (s *SQLStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// wrap marks errors the next attempt may not hit as ErrStorageUnavailable.
func (s *SQLStore) wrap(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if s.dialect.isTransient(err) {
		return apperrors.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *SQLStore) Replace(ctx context.Context, scope index.Scope, docs []index.Document) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := scope.CheckDocuments(docs); err != nil {
		return err
	}
	docs = lastByID(docs)
	words := distinctWords(docs)

	var resolved map[string]index.Token
	var written int
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteScope(ctx, tx, scope); err != nil {
			return err
		}
		var err error
		resolved, err = s.lookupOrCreate(ctx, tx, words)
		if err != nil {
			return err
		}
		written, err = s.insertPostings(ctx, tx, scope, docs, resolved)
		return err
	})
	if err != nil {
		return s.wrap("replacing "+scope.String(), err)
	}
	s.remember(resolved)
	s.logger.Debug("scope replaced", "scope", scope.String(), "doc_count", len(docs), "posting_count", written)
	return nil
}

// lastByID drops earlier copies of a record listed more than once.
func lastByID(docs []index.Document) []index.Document {
	pos := make(map[string]int, len(docs))
	out := make([]index.Document, 0, len(docs))
	for _, d := range docs {
		if i, ok := pos[d.Ref.ID]; ok {
			out[i] = d
			continue
		}
		pos[d.Ref.ID] = len(out)
		out = append(out, d)
	}
	return out
}

func (s *SQLStore) deleteScope(ctx context.Context, q queryer, scope index.Scope) error {
	if scope.IsAll() {
		a := &args{d: s.dialect}
		query := "DELETE FROM fts_index WHERE kind = " + a.add(scope.Kind) + " AND namespace = " + a.add(scope.Namespace)
		if _, err := q.ExecContext(ctx, query, a.values...); err != nil {
			return fmt.Errorf("deleting postings: %w", err)
		}
		return nil
	}
	for start := 0; start < len(scope.IDs); start += lookupBatch {
		ids := scope.IDs[start:min(start+lookupBatch, len(scope.IDs))]
		a := &args{d: s.dialect}
		query := "DELETE FROM fts_index WHERE kind = " + a.add(scope.Kind) +
			" AND namespace = " + a.add(scope.Namespace) +
			" AND object_id IN " + a.list(ids)
		if _, err := q.ExecContext(ctx, query, a.values...); err != nil {
			return fmt.Errorf("deleting postings: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) insertPostings(ctx context.Context, q queryer, scope index.Scope, docs []index.Document, tokens map[string]index.Token) (int, error) {
	type row struct {
		id     string
		wordID int64
		weight int
	}
	rows := make([]row, 0)
	for _, d := range docs {
		for w, weight := range d.Weights {
			rows = append(rows, row{id: d.Ref.ID, wordID: tokens[w].ID, weight: weight})
		}
	}
	for start := 0; start < len(rows); start += insertBatch {
		batch := rows[start:min(start+insertBatch, len(rows))]
		a := &args{d: s.dialect}
		values := make([]byte, 0, len(batch)*32)
		for i, r := range batch {
			if i > 0 {
				values = append(values, ", "...)
			}
			values = fmt.Appendf(values, "(%s, %s, %s, %s, %s)",
				a.add(scope.Kind), a.add(scope.Namespace), a.add(r.id), a.add(r.wordID), a.add(r.weight))
		}
		query := "INSERT INTO fts_index (kind, namespace, object_id, word_id, weight) VALUES " + string(values)
		if _, err := q.ExecContext(ctx, query, a.values...); err != nil {
			return 0, fmt.Errorf("inserting postings: %w", err)
		}
	}
	return len(rows), nil
}

func (s *SQLStore) LookupOrCreateTokens(ctx context.Context, words []string) (map[string]index.Token, error) {
	var out map[string]index.Token
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = s.lookupOrCreate(ctx, tx, words)
		return err
	})
	if err != nil {
		return nil, s.wrap("resolving tokens", err)
	}
	s.remember(out)
	return out, nil
}

// lookupOrCreate resolves words to tokens inside q. Missing words are inserted
// with ON CONFLICT DO NOTHING and read back, so a concurrent creator's row is
// reused instead of failing.
func (s *SQLStore) lookupOrCreate(ctx context.Context, q queryer, words []string) (map[string]index.Token, error) {
	out := make(map[string]index.Token, len(words))
	pending := make([]string, 0, len(words))
	for _, w := range words {
		if _, dup := out[w]; dup {
			continue
		}
		if s.tokens != nil {
			if id, ok := s.tokens.Get(w); ok {
				out[w] = index.Token{ID: id, Word: w}
				continue
			}
		}
		out[w] = index.Token{}
		pending = append(pending, w)
	}
	if len(pending) == 0 {
		return out, nil
	}
	if err := s.selectTokens(ctx, q, pending, out); err != nil {
		return nil, err
	}

	missing := pending[:0:0]
	for _, w := range pending {
		if out[w].ID == 0 {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	for start := 0; start < len(missing); start += insertBatch {
		batch := missing[start:min(start+insertBatch, len(missing))]
		a := &args{d: s.dialect}
		values := make([]byte, 0, len(batch)*8)
		for i, w := range batch {
			if i > 0 {
				values = append(values, ", "...)
			}
			values = fmt.Appendf(values, "(%s)", a.add(w))
		}
		query := "INSERT INTO fts_word (word) VALUES " + string(values) + " ON CONFLICT (word) DO NOTHING"
		if _, err := q.ExecContext(ctx, query, a.values...); err != nil {
			return nil, fmt.Errorf("creating tokens: %w", err)
		}
	}
	if err := s.selectTokens(ctx, q, missing, out); err != nil {
		return nil, err
	}
	for _, w := range missing {
		if out[w].ID == 0 {
			return nil, fmt.Errorf("%w: token %q missing after insert", apperrors.ErrInternal, w)
		}
	}
	return out, nil
}

func (s *SQLStore) selectTokens(ctx context.Context, q queryer, words []string, into map[string]index.Token) error {
	for start := 0; start < len(words); start += lookupBatch {
		batch := words[start:min(start+lookupBatch, len(words))]
		a := &args{d: s.dialect}
		query := "SELECT id, word FROM fts_word WHERE word IN " + a.list(batch)
		rows, err := q.QueryContext(ctx, query, a.values...)
		if err != nil {
			return fmt.Errorf("looking up tokens: %w", err)
		}
		for rows.Next() {
			var tok index.Token
			if err := rows.Scan(&tok.ID, &tok.Word); err != nil {
				rows.Close()
				return fmt.Errorf("scanning token: %w", err)
			}
			into[tok.Word] = tok
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterating tokens: %w", err)
		}
	}
	return nil
}

// remember caches tokens once their transaction has committed.
func (s *SQLStore) remember(tokens map[string]index.Token) {
	if s.tokens == nil {
		return
	}
	for w, tok := range tokens {
		if tok.ID != 0 {
			s.tokens.Add(w, tok.ID)
		}
	}
}

func (s *SQLStore) Postings(ctx context.Context, pq index.PostingQuery) (index.PostingList, error) {
	a := &args{d: s.dialect}
	query := `SELECT i.object_id, w.word, i.weight
		FROM fts_index i JOIN fts_word w ON w.id = i.word_id
		WHERE i.kind = ` + a.add(pq.Kind) + ` AND i.namespace = ` + a.add(pq.Namespace) + ` AND ` +
		wordPredicate(a, pq.Word, pq.Match) + `
		ORDER BY i.object_id, w.word`
	rows, err := s.db.QueryContext(ctx, query, a.values...)
	if err != nil {
		return nil, s.wrap("reading postings", err)
	}
	defer rows.Close()
	out := index.PostingList{}
	for rows.Next() {
		p := index.Posting{Ref: index.ContentRef{Kind: pq.Kind, Namespace: pq.Namespace}}
		if err := rows.Scan(&p.Ref.ID, &p.Word, &p.Weight); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("reading postings", err)
	}
	return out, nil
}

func wordPredicate(a *args, token string, match index.MatchMode) string {
	if match == index.MatchPrefix {
		return `w.word LIKE ` + a.add(prefixPattern(token)) + ` ESCAPE '\'`
	}
	return `w.word = ` + a.add(token)
}

// Counts reports the vocabulary size and the number of postings.
func (s *SQLStore) Counts(ctx context.Context) (tokens, postings int64, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT (SELECT COUNT(*) FROM fts_word), (SELECT COUNT(*) FROM fts_index)`)
	if err != nil {
		return 0, 0, s.wrap("counting index rows", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&tokens, &postings); err != nil {
			return 0, 0, fmt.Errorf("scanning counts: %w", err)
		}
	}
	return tokens, postings, rows.Err()
}

// distinctWords returns the words of docs once each, sorted. Concurrent
// replaces then create shared vocabulary rows in the same order and cannot
// deadlock on the word index.
func distinctWords(docs []index.Document) []string {
	seen := make(map[string]struct{})
	words := make([]string, 0)
	for _, d := range docs {
		for w := range d.Weights {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				words = append(words, w)
			}
		}
	}
	sort.Strings(words)
	return words
}
