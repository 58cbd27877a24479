package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "fts_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "fts"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func TestPostgresStore(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	s, err := New(db, Postgres, 64)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	kind := "pgtest_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DELETE FROM fts_index WHERE kind = $1", kind)
	})
	ref := func(id string) index.ContentRef { return index.ContentRef{Kind: kind, ID: id} }

	require.NoError(t, s.Replace(ctx, index.Scope{Kind: kind}, []index.Document{
		{Ref: ref("1"), Weights: map[string]int{"quick": 1, "fox": 1}},
		{Ref: ref("2"), Weights: map[string]int{"quick": 10, "brown": 4, "fox": 2}},
		{Ref: ref("3"), Weights: map[string]int{"test_x": 2, "testing": 1}},
	}))

	hits, total, err := s.SearchPlan(ctx, &index.QueryPlan{Kind: kind, Predicates: exact("brown", "quick"), Rank: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []index.Hit{{ID: "2", Rank: 14}}, hits)

	hits, _, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: kind, Predicates: prefix("test_"), Rank: true})
	require.NoError(t, err)
	assert.Equal(t, []index.Hit{{ID: "3", Rank: 2}}, hits)

	require.NoError(t, s.Replace(ctx, index.Scope{Kind: kind, IDs: []string{"2"}}, nil))
	hits, _, err = s.SearchPlan(ctx, &index.QueryPlan{Kind: kind, Predicates: exact("brown")})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
