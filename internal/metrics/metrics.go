// Package metrics counts crawl events for progress logs, the exit report and
// Prometheus scraping.
package metrics

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alvmarrod/link-graph/internal/fetch"
	"github.com/alvmarrod/link-graph/internal/storage"
)

// Termination reasons written to the metrics file
const (
	TerminationQueueEmpty = "queue_empty"
	TerminationCanceled   = "canceled"
	TerminationError      = "error"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int

	registry        *prometheus.Registry
	nodesDiscovered prometheus.Counter
	nodesVisited    prometheus.Counter
	edgesRecorded   prometheus.Counter
	pagesFetched    prometheus.Counter
	pagesFailed     *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
}

// NewTracker creates a new metrics tracker for the given run and registers
// its collectors on a private registry
func NewTracker(runID string) (*Tracker, error) {
	t := &Tracker{
		data: storage.Metrics{
			RunID:               runID,
			StartTime:           time.Now(),
			PagesFailedByReason: make(map[string]int),
		},
		registry: prometheus.NewRegistry(),
		nodesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkgraph_nodes_discovered_total",
			Help: "URLs registered in the link graph.",
		}),
		nodesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkgraph_nodes_visited_total",
			Help: "URLs popped from the frontier and fetched.",
		}),
		edgesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkgraph_edges_recorded_total",
			Help: "Distinct directed edges recorded.",
		}),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkgraph_pages_fetched_total",
			Help: "Fetches that produced an HTML body.",
		}),
		pagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgraph_pages_failed_total",
			Help: "Fetches without content, partitioned by reason.",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkgraph_fetch_duration_seconds",
			Help:    "Wall time per fetch.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}

	for _, collector := range []prometheus.Collector{
		t.nodesDiscovered,
		t.nodesVisited,
		t.edgesRecorded,
		t.pagesFetched,
		t.pagesFailed,
		t.fetchDuration,
	} {
		if err := t.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return t, nil
}

// Handler serves the tracker's collectors in the Prometheus text format
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// NodeDiscovered increments the discovered nodes counter
func (t *Tracker) NodeDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesDiscovered++
	t.nodesDiscovered.Inc()
}

// NodeVisited increments the visited nodes counter
func (t *Tracker) NodeVisited() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesVisited++
	t.nodesVisited.Inc()
}

// EdgeRecorded increments the edges counter
func (t *Tracker) EdgeRecorded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EdgesRecorded++
	t.edgesRecorded.Inc()
}

// PageFetched records a fetch that produced content
func (t *Tracker) PageFetched(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
	t.pagesFetched.Inc()
	t.recordFetchTime(duration)
}

// PageFailed records a fetch without content
func (t *Tracker) PageFailed(reason fetch.Reason, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
	t.data.PagesFailedByReason[string(reason)]++
	t.pagesFailed.WithLabelValues(string(reason)).Inc()
	t.recordFetchTime(duration)
}

// recordFetchTime must be called with mu held
func (t *Tracker) recordFetchTime(duration time.Duration) {
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
	t.fetchDuration.Observe(duration.Seconds())
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() storage.Metrics {
	snapshot := t.data
	snapshot.PagesFailedByReason = maps.Clone(t.data.PagesFailedByReason)
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// WriteToFile finalizes the metrics with reason and exports them as JSON
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	jsonData, err := json.MarshalIndent(t.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Nodes: %d discovered, %d visited | Edges: %d | Pages: %d fetched, %d failed",
		t.data.NodesDiscovered,
		t.data.NodesVisited,
		t.data.EdgesRecorded,
		t.data.PagesFetched,
		t.data.PagesFailed,
	)
}
