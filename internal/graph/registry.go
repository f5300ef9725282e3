package graph

import (
	"sync"

	"github.com/alvmarrod/link-graph/internal/links"
)

// Registry assigns every distinct canonical URL a stable integer id.
// Ids start at 1 and follow discovery order; nothing is ever removed.
type Registry struct {
	ids     map[string]int // canonical url -> node id
	urls    []string       // node id - 1 -> canonical url
	counter int
	mu      sync.RWMutex
}

// NewRegistry creates an empty identity registry
func NewRegistry() *Registry {
	return &Registry{
		ids:  make(map[string]int),
		urls: make([]string, 0),
	}
}

// RegisterOrLookup returns the id of rawURL, assigning the next one if the
// canonical form has not been seen before. isNew reports whether an id was assigned.
func (r *Registry) RegisterOrLookup(rawURL string) (id int, isNew bool, err error) {
	key, err := links.Canonicalize(rawURL)
	if err != nil {
		return 0, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.ids[key]; exists {
		return id, false, nil
	}

	r.counter++
	r.ids[key] = r.counter
	r.urls = append(r.urls, key)

	return r.counter, true, nil
}

// Lookup returns the id of rawURL without registering it
func (r *Registry) Lookup(rawURL string) (int, bool) {
	key, err := links.Canonicalize(rawURL)
	if err != nil {
		return 0, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.ids[key]
	return id, exists
}

// URL returns the canonical URL registered under id
func (r *Registry) URL(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || id > len(r.urls) {
		return "", false
	}
	return r.urls[id-1], true
}

// Len returns the number of registered URLs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counter
}
