package crawler

import (
	"sync"
)

// Entry is a candidate URL waiting in the frontier.
// Referrer is the page it was found on and is only used for logging.
type Entry struct {
	Referrer string
	URL      string
}

// Frontier implements a FIFO queue of crawl candidates.
// Duplicates are accepted; the scheduler discards already visited entries on Pop.
type Frontier struct {
	mu    sync.Mutex
	items []Entry
	head  int
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		items: make([]Entry, 0),
	}
}

// Push appends an entry to the back of the queue
func (f *Frontier) Push(entry Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, entry)
}

// Pop removes and returns the first entry from the queue.
// Returns (empty, false) if the queue is empty.
func (f *Frontier) Pop() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.items) {
		return Entry{}, false
	}

	entry := f.items[f.head]
	f.items[f.head] = Entry{}
	f.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if f.head > 1024 && f.head*2 >= len(f.items) {
		f.items = append(make([]Entry, 0, len(f.items)-f.head), f.items[f.head:]...)
		f.head = 0
	}

	return entry, true
}

// IsEmpty returns true if the queue has no items
func (f *Frontier) IsEmpty() bool {
	return f.Size() == 0
}

// Size returns the current number of items in the queue
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) - f.head
}
