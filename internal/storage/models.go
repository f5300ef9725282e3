package storage

import "time"

// Run describes one stored crawl session
type Run struct {
	RunID      string
	SeedURL    string
	Domain     string
	MatchMode  string
	MinCrawls  int
	NodeCount  int
	EdgeCount  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	RunID               string         `json:"run_id"`
	StartTime           time.Time      `json:"start_time"`
	EndTime             time.Time      `json:"end_time"`
	NodesDiscovered     int            `json:"nodes_discovered"`
	NodesVisited        int            `json:"nodes_visited"`
	EdgesRecorded       int            `json:"edges_recorded"`
	PagesFetched        int            `json:"pages_fetched"`
	PagesFailed         int            `json:"pages_failed"`
	PagesFailedByReason map[string]int `json:"pages_failed_by_reason"`
	TotalFetchTimeMs    int64          `json:"total_fetch_time_ms"`
	AvgFetchTimeMs      int64          `json:"avg_fetch_time_ms"`
	TerminationReason   string         `json:"termination_reason"`
}
