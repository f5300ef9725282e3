package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alvmarrod/link-graph/internal/graph"
)

// ErrRunNotFound is returned when a run id is not stored
var ErrRunNotFound = errors.New("crawl run not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		run_id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		domain TEXT NOT NULL,
		match_mode TEXT NOT NULL,
		min_crawls INTEGER NOT NULL,
		node_count INTEGER NOT NULL DEFAULT 0,
		edge_count INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		run_id TEXT NOT NULL,
		node_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		visited INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, node_id),
		UNIQUE (run_id, url),
		FOREIGN KEY (run_id) REFERENCES crawl_runs(run_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS edges (
		run_id TEXT NOT NULL,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, from_node_id, to_node_id),
		FOREIGN KEY (run_id, from_node_id) REFERENCES nodes(run_id, node_id),
		FOREIGN KEY (run_id, to_node_id) REFERENCES nodes(run_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(run_id, to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a finished crawl in a single transaction.
// NodeCount and EdgeCount of run are taken from nodes and edges.
func (s *Storage) SaveRun(ctx context.Context, run *Run, nodes []graph.Node, edges []graph.Edge) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	run.NodeCount = len(nodes)
	run.EdgeCount = len(edges)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO crawl_runs (run_id, seed_url, domain, match_mode, min_crawls, node_count, edge_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.SeedURL, run.Domain, run.MatchMode, run.MinCrawls,
		run.NodeCount, run.EdgeCount, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes (run_id, node_id, url, visited) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range nodes {
		if _, err = nodeStmt.ExecContext(ctx, run.RunID, n.ID, n.URL, n.Visited); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, "INSERT INTO edges (run_id, from_node_id, to_node_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range edges {
		if _, err = edgeStmt.ExecContext(ctx, run.RunID, e.Source, e.Target); err != nil {
			return fmt.Errorf("failed to insert edge %d -> %d: %w", e.Source, e.Target, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `run_id, seed_url, domain, match_mode, min_crawls, node_count, edge_count, started_at, finished_at`

// GetRun retrieves a run by id
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM crawl_runs WHERE run_id = ?", runID)
	return scanRun(row, runID)
}

// LatestRun retrieves the most recently started run
func (s *Storage) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM crawl_runs ORDER BY started_at DESC, rowid DESC LIMIT 1")
	return scanRun(row, "latest")
}

func scanRun(row *sql.Row, label string) (*Run, error) {
	var run Run
	err := row.Scan(&run.RunID, &run.SeedURL, &run.Domain, &run.MatchMode, &run.MinCrawls,
		&run.NodeCount, &run.EdgeCount, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// LoadNodes returns the nodes of a run ordered by id
func (s *Storage) LoadNodes(ctx context.Context, runID string) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, url, visited
		FROM nodes
		WHERE run_id = ?
		ORDER BY node_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		if err := rows.Scan(&n.ID, &n.URL, &n.Visited); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

// LoadEdges returns the edges of a run ordered by (source, target)
func (s *Storage) LoadEdges(ctx context.Context, runID string) ([]graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_node_id, to_node_id
		FROM edges
		WHERE run_id = ?
		ORDER BY from_node_id ASC, to_node_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	edges := make([]graph.Edge, 0)
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
