package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alvmarrod/link-graph/internal/graph"
)

// WriteEdgeList writes edges as CSV with a source,target header
func WriteEdgeList(w io.Writer, edges []graph.Edge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "target"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range edges {
		if err := cw.Write([]string{strconv.Itoa(e.Source), strconv.Itoa(e.Target)}); err != nil {
			return fmt.Errorf("failed to write edge %d -> %d: %w", e.Source, e.Target, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgeListFile writes the edge list to path. The file is written next to
// path and renamed into place, so readers never see a partial artifact.
func WriteEdgeListFile(path string, edges []graph.Edge) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteEdgeList(tmp, edges); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move edge list into place: %w", err)
	}
	return nil
}
