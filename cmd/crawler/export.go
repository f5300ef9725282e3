package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/storage"
)

var exportFlagKeys = map[string]string{
	"db":     "db_path",
	"output": "output_path",
}

// NewExportCmd creates the export command.
// It rewrites the edge list of a run stored by 'linkgraph crawl --db'.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the edge list of a stored crawl run as CSV",
		Long: `Export reads a crawl run from the SQLite database written by 'linkgraph crawl --db'
and writes its edge list in the same source,target format.

Examples:
  # Export the most recent run
  linkgraph export --db graph.db --output network.csv

  # Export a specific run
  linkgraph export --db graph.db --run 5f0c...`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().String("db", "", "SQLite database written by a previous crawl")
	cmd.Flags().StringP("output", "o", config.Defaults().OutputPath, "Path of the CSV edge list")
	cmd.Flags().String("run", "", "Run id to export (default: latest run)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, exportFlagKeys)
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return errors.New("no database given (use --db or db_path)")
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var run *storage.Run
	if runID == "" {
		run, err = store.LatestRun(ctx)
	} else {
		run, err = store.GetRun(ctx, runID)
	}
	if err != nil {
		return err
	}

	nodes, err := store.LoadNodes(ctx, run.RunID)
	if err != nil {
		return err
	}
	visited := 0
	for _, n := range nodes {
		if n.Visited {
			visited++
		}
	}

	edges, err := store.LoadEdges(ctx, run.RunID)
	if err != nil {
		return err
	}

	if err := storage.WriteEdgeListFile(cfg.OutputPath, edges); err != nil {
		return err
	}
	logrus.Infof("Exported run %s (seed %s, %d nodes, %d visited) with %d edges to %s",
		run.RunID, run.SeedURL, len(nodes), visited, len(edges), cfg.OutputPath)
	return nil
}
