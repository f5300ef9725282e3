package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-graph/internal/storage"
)

func TestExportLatestRun(t *testing.T) {
	srv := newTestSite(t)
	dir := t.TempDir()
	crawled := filepath.Join(dir, "network.csv")
	exported := filepath.Join(dir, "exported.csv")
	db := filepath.Join(dir, "graph.db")

	require.NoError(t, executeRoot(t, "crawl",
		"--seed", srv.URL+"/",
		"--domain", "127.0.0.1",
		"--min-crawls", "5",
		"--output", crawled,
		"--db", db,
		"--progress-interval", "0",
	))

	require.NoError(t, executeRoot(t, "export", "--db", db, "--output", exported))

	want, err := os.ReadFile(crawled)
	require.NoError(t, err)
	got, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestExportUnknownRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "graph.db")

	store, err := storage.NewStorage(db)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = executeRoot(t, "export", "--db", db, "--run", "missing", "--output", filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestExportRequiresDatabase(t *testing.T) {
	dir := t.TempDir()

	err := executeRoot(t, "export", "--output", filepath.Join(dir, "out.csv"))
	assert.Error(t, err)

	err = executeRoot(t, "export", "--db", filepath.Join(dir, "absent.db"), "--output", filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(dir, "absent.db"))
}
