package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fts/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/sqlite"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name        string
	placeholder func(n int) string
	schema      []string
	isTransient func(error) bool
}

// Postgres targets lib/pq.
var Postgres = Dialect{
	Name:        "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	isTransient: postgres.IsTransient,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS fts_word (
			id   BIGSERIAL PRIMARY KEY,
			word TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS fts_index (
			kind      TEXT    NOT NULL,
			namespace TEXT    NOT NULL DEFAULT '',
			object_id TEXT    NOT NULL,
			word_id   BIGINT  NOT NULL REFERENCES fts_word (id),
			weight    INTEGER NOT NULL,
			PRIMARY KEY (kind, namespace, object_id, word_id)
		)`,
		`CREATE INDEX IF NOT EXISTS fts_index_word_idx ON fts_index (word_id, kind, namespace)`,
		`CREATE INDEX IF NOT EXISTS fts_word_prefix_idx ON fts_word (word text_pattern_ops)`,
	},
}

// SQLite targets modernc.org/sqlite.
var SQLite = Dialect{
	Name:        "sqlite",
	placeholder: func(int) string { return "?" },
	isTransient: sqlite.IsTransient,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS fts_word (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			word TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS fts_index (
			kind      TEXT    NOT NULL,
			namespace TEXT    NOT NULL DEFAULT '',
			object_id TEXT    NOT NULL,
			word_id   INTEGER NOT NULL REFERENCES fts_word (id),
			weight    INTEGER NOT NULL,
			PRIMARY KEY (kind, namespace, object_id, word_id)
		)`,
		`CREATE INDEX IF NOT EXISTS fts_index_word_idx ON fts_index (word_id, kind, namespace)`,
	},
}

// Placeholder renders the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// DialectFor maps the index.backend setting to a Dialect.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("no SQL dialect for backend %q", backend)
}

// args accumulates bind values and renders their placeholders.
type args struct {
	d      Dialect
	values []any
}

func (a *args) add(v any) string {
	a.values = append(a.values, v)
	return a.d.placeholder(len(a.values))
}

// list binds every value and returns "(p1, p2, ...)".
func (a *args) list(vs []string) string {
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = a.add(v)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixPattern turns a token into a LIKE pattern that matches only words
// starting with it.
func prefixPattern(token string) string {
	return likeEscaper.Replace(token) + "%"
}
