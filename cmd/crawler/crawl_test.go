package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/fetch"
	"github.com/alvmarrod/link-graph/internal/metrics"
	"github.com/alvmarrod/link-graph/internal/storage"
)

// newTestSite serves a small site: / -> a, b, external; a -> b, /; b -> c; c is missing
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/":  `<a href="/a">a</a><a href="/b?utm=x">b</a><a href="http://other.invalid/x">out</a>`,
		"/a": `<a href="/b">b</a><a href="/">home</a>`,
		"/b": `<a href="/c#top">c</a>`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func executeRoot(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	return cmd.Execute()
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCrawlWritesEdgeList(t *testing.T) {
	srv := newTestSite(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "network.csv")
	db := filepath.Join(dir, "graph.db")
	metricsPath := filepath.Join(dir, "metrics.json")

	err := executeRoot(t, "crawl",
		"--seed", srv.URL+"/",
		"--domain", "127.0.0.1",
		"--min-crawls", "5",
		"--output", out,
		"--db", db,
		"--metrics", metricsPath,
		"--progress-interval", "0",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "source,target\n1,2\n1,3\n2,1\n2,3\n3,4\n", string(raw))

	raw, err = os.ReadFile(metricsPath)
	require.NoError(t, err)
	var m storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, metrics.TerminationQueueEmpty, m.TerminationReason)
	assert.Equal(t, 4, m.NodesDiscovered)
	assert.Equal(t, 4, m.NodesVisited)
	assert.Equal(t, 3, m.PagesFetched)
	assert.Equal(t, map[string]int{"http_status": 1}, m.PagesFailedByReason)

	store, err := storage.NewStorage(db)
	require.NoError(t, err)
	defer store.Close()

	run, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.RunID, run.RunID)
	assert.Equal(t, 4, run.NodeCount)
	assert.Equal(t, 5, run.EdgeCount)
}

func TestRootDefaultsToCrawl(t *testing.T) {
	srv := newTestSite(t)
	out := filepath.Join(t.TempDir(), "network.csv")

	err := executeRoot(t,
		"--seed", srv.URL+"/",
		"--domain", "127.0.0.1",
		"--min-crawls", "1",
		"--output", out,
		"--progress-interval", "0",
	)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestCrawlFromConfigFile(t *testing.T) {
	srv := newTestSite(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config.csv")

	cfgPath := filepath.Join(dir, "config.json")
	body := fmt.Sprintf(`{"seed_url": %q, "domain": "127.0.0.1", "min_crawls": 1, "output_path": %q, "progress_interval_ms": 0}`,
		srv.URL+"/", out)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	require.NoError(t, executeRoot(t, "crawl", "--config", cfgPath))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "source,target\n1,2\n")
}

func TestCrawlSeedOutsideDomain(t *testing.T) {
	srv := newTestSite(t)
	out := filepath.Join(t.TempDir(), "network.csv")

	err := executeRoot(t, "crawl",
		"--seed", srv.URL+"/",
		"--domain", "example.org",
		"--output", out,
		"--progress-interval", "0",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "source,target\n", string(raw))
}

func TestCrawlInvalidConfig(t *testing.T) {
	err := executeRoot(t, "crawl", "--seed", "not-a-url", "--output", filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

func TestRunSessionCanceled(t *testing.T) {
	srv := newTestSite(t)
	dir := t.TempDir()

	cfg := config.Defaults()
	cfg.SeedURL = srv.URL + "/"
	cfg.Domain = "127.0.0.1"
	cfg.OutputPath = filepath.Join(dir, "network.csv")
	cfg.MetricsPath = filepath.Join(dir, "metrics.json")
	cfg.ProgressIntervalMs = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	released := false
	fetcher := fetch.New(fetch.Config{UserAgent: cfg.UserAgent, Timeout: cfg.RequestTimeout()})
	err := runSession(ctx, func() { released = true }, &cfg, fetcher)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, released)
	assert.NoFileExists(t, cfg.OutputPath)

	raw, err := os.ReadFile(cfg.MetricsPath)
	require.NoError(t, err)
	var m storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, metrics.TerminationCanceled, m.TerminationReason)
}

func TestTerminationReason(t *testing.T) {
	assert.Equal(t, "queue_empty", terminationReason(nil))
	assert.Equal(t, "canceled", terminationReason(fmt.Errorf("crawl interrupted: %w", context.Canceled)))
	assert.Equal(t, "error", terminationReason(assert.AnError))
}

func TestConfigPathDefaultMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	path, err := configPath(cmd)
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, cmd.ParseFlags([]string{"--config", "custom.json"}))
	path, err = configPath(cmd)
	require.NoError(t, err)
	assert.Equal(t, "custom.json", path)
}

func TestNewCrawlCmdFlags(t *testing.T) {
	cmd := NewCrawlCmd()
	assert.Equal(t, "crawl", cmd.Use)

	for name := range crawlFlagKeys {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}

	shorthands := map[string]string{"seed": "s", "domain": "d", "min-crawls": "n", "output": "o"}
	for name, short := range shorthands {
		assert.Equal(t, short, cmd.Flags().Lookup(name).Shorthand, name)
	}
}
