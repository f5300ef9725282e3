package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-graph/internal/graph"
)

func TestWriteEdgeList(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEdgeList(&buf, []graph.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}})
	require.NoError(t, err)
	assert.Equal(t, "source,target\n1,2\n2,3\n", buf.String())
}

func TestWriteEdgeListHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEdgeList(&buf, nil))
	assert.Equal(t, "source,target\n", buf.String())
}

func TestWriteEdgeListFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteEdgeListFile(path, []graph.Edge{{Source: 1, Target: 2}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "source,target\n1,2\n", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestWriteEdgeListFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "network.csv")
	assert.Error(t, WriteEdgeListFile(path, nil))
}
