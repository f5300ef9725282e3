package graph

import (
	"cmp"
	"slices"
	"sync"
)

// Edge is a directed link from one node id to another
type Edge struct {
	Source int
	Target int
}

// EdgeSet accumulates directed edges, collapsing duplicates
type EdgeSet struct {
	edges map[Edge]struct{}
	mu    sync.RWMutex
}

// NewEdgeSet creates an empty edge set
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{edges: make(map[Edge]struct{})}
}

// Add records source -> target. Returns false if the edge was already present.
func (es *EdgeSet) Add(source, target int) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	e := Edge{Source: source, Target: target}
	if _, exists := es.edges[e]; exists {
		return false
	}
	es.edges[e] = struct{}{}
	return true
}

// Len returns the number of distinct edges
func (es *EdgeSet) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.edges)
}

// Edges returns a copy of all edges sorted by source then target
func (es *EdgeSet) Edges() []Edge {
	return es.Filter(func(Edge) bool { return true })
}

// Filter returns the edges accepted by keep, sorted by source then target
func (es *EdgeSet) Filter(keep func(Edge) bool) []Edge {
	es.mu.RLock()
	result := make([]Edge, 0, len(es.edges))
	for e := range es.edges {
		if keep(e) {
			result = append(result, e)
		}
	}
	es.mu.RUnlock()

	SortEdges(result)
	return result
}

// SortEdges orders edges by source then target
func SortEdges(edges []Edge) {
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
}
