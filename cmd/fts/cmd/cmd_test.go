package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/sqlite"
)

const testConfigYAML = `
index:
  backend: sqlite
sqlite:
  path: %s
logging:
  level: error
collections:
  - kind: post
    source:
      table: posts
      idColumn: id
    fields:
      - path: title
        weight: A
      - path: body
        weight: D
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "fts.db")

	db, err := sqlite.Open(dbPath, time.Second)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, body TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts (id, title, body) VALUES
		(1, 'Go channels', 'pipelines'),
		(2, 'Pipelines', 'built with go'),
		(3, 'Rust', 'ownership')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(testConfigYAML, dbPath)), 0o600))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexThenSearch(t *testing.T) {
	cfgPath := setup(t)

	out, err := run(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready")

	_, err = run(t, "index", "--config", cfgPath, "--kind", "post", "--all")
	require.NoError(t, err)

	out, err = run(t, "search", "--config", cfgPath, "--kind", "post", "go")
	require.NoError(t, err)
	var res executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Results, 2)
	assert.Equal(t, "1", res.Results[0].ID)
	assert.Equal(t, 10, res.Results[0].Rank)
	assert.Equal(t, "2", res.Results[1].ID)

	out, err = run(t, "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"postings"`)
}

func TestIndexFlagValidation(t *testing.T) {
	cfgPath := setup(t)

	_, err := run(t, "index", "--config", cfgPath, "--kind", "post")
	assert.ErrorContains(t, err, "--all or at least one --id")

	_, err = run(t, "index", "--config", cfgPath, "--kind", "post", "--all", "--id", "1")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = run(t, "index", "--config", cfgPath, "--id", "1")
	assert.ErrorContains(t, err, "--kind is required")

	_, err = run(t, "search", "--config", cfgPath, "go")
	assert.Error(t, err)
}
