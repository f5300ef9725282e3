// Package graph holds the in-memory link graph built during a crawl: node
// identities, the visited set and the recorded edges.
package graph

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownNode is returned when an operation references an id that was never registered
var ErrUnknownNode = errors.New("unknown node id")

// Node is a registered URL with its crawl state
type Node struct {
	ID      int
	URL     string
	Visited bool
}

// Graph holds graph data in memory for the duration of one crawl
type Graph struct {
	registry *Registry
	edges    *EdgeSet
	visited  map[int]bool
	mu       sync.RWMutex
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		registry: NewRegistry(),
		edges:    NewEdgeSet(),
		visited:  make(map[int]bool),
	}
}

// RegisterOrLookup returns the node id for rawURL, registering it if new
func (g *Graph) RegisterOrLookup(rawURL string) (int, bool, error) {
	return g.registry.RegisterOrLookup(rawURL)
}

// Lookup returns the node id for rawURL if it is registered
func (g *Graph) Lookup(rawURL string) (int, bool) {
	return g.registry.Lookup(rawURL)
}

// URL returns the canonical URL of a node
func (g *Graph) URL(id int) (string, bool) {
	return g.registry.URL(id)
}

// MarkVisited adds id to the visited set.
// Returns false if it was already visited.
func (g *Graph) MarkVisited(id int) (bool, error) {
	if _, ok := g.registry.URL(id); !ok {
		return false, fmt.Errorf("mark visited %d: %w", id, ErrUnknownNode)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.visited[id] {
		return false, nil
	}
	g.visited[id] = true
	return true, nil
}

// IsVisited reports whether id has been fetched and expanded
func (g *Graph) IsVisited(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.visited[id]
}

// AddEdge records source -> target. Both ids must be registered.
func (g *Graph) AddEdge(source, target int) (bool, error) {
	if _, ok := g.registry.URL(source); !ok {
		return false, fmt.Errorf("source node %d: %w", source, ErrUnknownNode)
	}
	if _, ok := g.registry.URL(target); !ok {
		return false, fmt.Errorf("target node %d: %w", target, ErrUnknownNode)
	}
	return g.edges.Add(source, target), nil
}

// Edges returns every recorded edge, including those pointing at unvisited nodes
func (g *Graph) Edges() []Edge {
	return g.edges.Edges()
}

// Closure returns the edges whose source and target were both visited
func (g *Graph) Closure() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.edges.Filter(func(e Edge) bool {
		return g.visited[e.Source] && g.visited[e.Target]
	})
}

// Nodes returns all registered nodes in id order
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := g.registry.Len()
	nodes := make([]Node, 0, count)
	for id := 1; id <= count; id++ {
		url, _ := g.registry.URL(id)
		nodes = append(nodes, Node{ID: id, URL: url, Visited: g.visited[id]})
	}
	return nodes
}

// GetStats returns current graph statistics
func (g *Graph) GetStats() (nodeCount, visitedCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.registry.Len(), len(g.visited), g.edges.Len()
}
