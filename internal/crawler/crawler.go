package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/fetch"
	"github.com/alvmarrod/link-graph/internal/graph"
	"github.com/alvmarrod/link-graph/internal/links"
	"github.com/sirupsen/logrus"
)

// ErrUnregisteredURL means a frontier entry has no node identity, which indicates a bug
var ErrUnregisteredURL = errors.New("frontier url is not registered")

// ErrAlreadyRan is returned when Run is called twice on the same crawler
var ErrAlreadyRan = errors.New("crawler already ran")

// Fetcher retrieves a single page.
// It returns an error only when ctx is canceled.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetch.Result, error)
}

// Extractor turns a page body into the canonical URLs it links to
type Extractor interface {
	Extract(body []byte, baseURL string) []string
}

// Observer receives crawl events, e.g. for metrics
type Observer interface {
	NodeDiscovered()
	NodeVisited()
	EdgeRecorded()
	PageFetched(duration time.Duration)
	PageFailed(reason fetch.Reason, duration time.Duration)
}

// Phase is the scheduler state. Transitions only move forward.
type Phase int

const (
	PhaseExpanding Phase = iota // links are enqueued, budget bounded
	PhaseDraining               // no new entries, runs until the frontier is empty
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseExpanding:
		return "expanding"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Crawler owns the traversal state of one crawl session
type Crawler struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor Extractor
	observer  Observer
	scope     *Scope
	frontier  *Frontier
	graph     *graph.Graph
	phase     Phase
	started   bool
}

// NewCrawler creates a new crawler instance. observer may be nil.
func NewCrawler(cfg *config.Config, fetcher Fetcher, extractor Extractor, observer Observer) *Crawler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		observer:  observer,
		scope:     NewScope(cfg.Domain, cfg.MatchMode),
		frontier:  NewFrontier(),
		graph:     graph.New(),
		phase:     PhaseExpanding,
	}
}

// Run crawls from the seed: one seed expansion, MinCrawls expansion steps,
// then drains the frontier without enqueuing. It returns the built graph, or
// an error if ctx is canceled or an internal invariant breaks.
func (c *Crawler) Run(ctx context.Context) (*graph.Graph, error) {
	if c.started {
		return nil, ErrAlreadyRan
	}
	c.started = true

	seed, err := links.Canonicalize(c.cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}
	seedID, _, err := c.graph.RegisterOrLookup(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to register seed: %w", err)
	}
	c.observer.NodeDiscovered()
	logrus.Infof("Starting crawl at %s (node %d), domain=%q, min_crawls=%d",
		seed, seedID, c.cfg.Domain, c.cfg.MinCrawls)

	c.frontier.Push(Entry{URL: seed})
	if err := c.step(ctx); err != nil {
		return nil, err
	}

	for i := 0; i < c.cfg.MinCrawls; i++ {
		if i%5 == 0 {
			logrus.Infof("Iteration: %d (queue=%d)", i, c.frontier.Size())
		}
		if err := c.step(ctx); err != nil {
			return nil, err
		}
	}

	c.transition(PhaseDraining)
	for !c.frontier.IsEmpty() {
		if size := c.frontier.Size(); size%10 == 0 {
			logrus.Infof("Clearing queue: %d remaining", size)
		}
		if err := c.step(ctx); err != nil {
			return nil, err
		}
	}
	c.transition(PhaseDone)

	nodes, visited, edges := c.graph.GetStats()
	logrus.Infof("Crawl complete: %d nodes discovered, %d visited, %d edges recorded", nodes, visited, edges)

	return c.graph, nil
}

// Phase returns the current scheduler state
func (c *Crawler) Phase() Phase {
	return c.phase
}

// QueueSize returns the number of pending frontier entries
func (c *Crawler) QueueSize() int {
	return c.frontier.Size()
}

func (c *Crawler) transition(next Phase) {
	if next <= c.phase {
		return
	}
	logrus.Infof("Scheduler %s -> %s (queue=%d)", c.phase, next, c.frontier.Size())
	c.phase = next
}

// step expands the next unvisited frontier entry; an empty frontier makes it a no-op
func (c *Crawler) step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}

	entry, id, ok, err := c.next()
	if err != nil || !ok {
		return err
	}

	res, err := c.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		return fmt.Errorf("crawl interrupted at %s: %w", entry.URL, err)
	}

	if _, err := c.graph.MarkVisited(id); err != nil {
		return err
	}
	c.observer.NodeVisited()

	if !res.HasContent() {
		c.observer.PageFailed(res.Reason, res.Duration)
		logrus.Debugf("No content for %s (node %d, referrer=%q, reason=%s): %v",
			entry.URL, id, entry.Referrer, res.Reason, res.Err)
		return nil
	}
	c.observer.PageFetched(res.Duration)

	base := res.FinalURL
	if base == "" {
		base = entry.URL
	}
	found := c.extractor.Extract(res.Body, base)
	logrus.Debugf("Fetched %s (node %d): %d links", entry.URL, id, len(found))

	return c.expand(entry.URL, id, found)
}

// next pops entries until it finds one that has not been visited
func (c *Crawler) next() (Entry, int, bool, error) {
	for {
		entry, ok := c.frontier.Pop()
		if !ok {
			return Entry{}, 0, false, nil
		}

		id, known := c.graph.Lookup(entry.URL)
		if !known {
			return Entry{}, 0, false, fmt.Errorf("%w: %s", ErrUnregisteredURL, entry.URL)
		}
		if c.graph.IsVisited(id) {
			continue
		}
		return entry, id, true, nil
	}
}

// expand registers in-scope links, records edges from id and, while
// expanding, enqueues them
func (c *Crawler) expand(source string, id int, found []string) error {
	for _, link := range found {
		if !c.scope.Allows(link) {
			continue
		}

		target, isNew, err := c.graph.RegisterOrLookup(link)
		if err != nil {
			logrus.Debugf("Skipping link %q from %s: %v", link, source, err)
			continue
		}
		if isNew {
			c.observer.NodeDiscovered()
		}

		if c.phase == PhaseExpanding {
			c.frontier.Push(Entry{Referrer: source, URL: link})
		}

		// A redirected page may link back to the url it was requested under
		if target == id {
			continue
		}

		added, err := c.graph.AddEdge(id, target)
		if err != nil {
			return err
		}
		if added {
			c.observer.EdgeRecorded()
			logrus.Debugf("Edge: %d -> %d (%s)", id, target, link)
		}
	}
	return nil
}

type noopObserver struct{}

func (noopObserver) NodeDiscovered()                        {}
func (noopObserver) NodeVisited()                           {}
func (noopObserver) EdgeRecorded()                          {}
func (noopObserver) PageFetched(time.Duration)              {}
func (noopObserver) PageFailed(fetch.Reason, time.Duration) {}
