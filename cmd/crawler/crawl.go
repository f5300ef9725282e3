package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/crawler"
	"github.com/alvmarrod/link-graph/internal/fetch"
	"github.com/alvmarrod/link-graph/internal/graph"
	"github.com/alvmarrod/link-graph/internal/links"
	"github.com/alvmarrod/link-graph/internal/metrics"
	"github.com/alvmarrod/link-graph/internal/storage"
	"github.com/alvmarrod/link-graph/internal/version"
)

// crawlFlagKeys maps crawl flags to config keys
var crawlFlagKeys = map[string]string{
	"seed":              "seed_url",
	"domain":            "domain",
	"match-mode":        "match_mode",
	"min-crawls":        "min_crawls",
	"timeout":           "request_timeout_ms",
	"user-agent":        "user_agent",
	"output":            "output_path",
	"db":                "db_path",
	"metrics":           "metrics_path",
	"metrics-addr":      "metrics_addr",
	"progress-interval": "progress_interval_ms",
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl from the seed URL and write the edge list",
		Long: `Crawl fetches the seed page, then expands up to --min-crawls further pages in
breadth-first order, enqueuing every in-domain link it finds. Once the budget
is spent it visits whatever is still queued without enqueuing anything new.

The edge list is written only when the crawl completes. Interrupting a crawl
(Ctrl-C) leaves any previous output untouched; a second interrupt exits
immediately.

Examples:
  # Crawl the default seed
  linkgraph crawl

  # Crawl another domain, matching on the host name only
  linkgraph crawl --seed https://go.dev/ --domain go.dev --match-mode host

  # Keep a copy of the graph in SQLite and expose Prometheus metrics
  linkgraph crawl --db graph.db --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: runCrawl,
	}

	addCrawlFlags(cmd)
	return cmd
}

func addCrawlFlags(cmd *cobra.Command) {
	d := config.Defaults()

	cmd.Flags().StringP("seed", "s", d.SeedURL, "Seed URL to start crawling from")
	cmd.Flags().StringP("domain", "d", d.Domain, "Domain token a link must match to be crawled")
	cmd.Flags().String("match-mode", d.MatchMode, "Domain match mode: substring or host")
	cmd.Flags().IntP("min-crawls", "n", d.MinCrawls, "Pages to expand after the seed before draining the queue")
	cmd.Flags().Int("timeout", d.RequestTimeoutMs, "Request timeout in milliseconds")
	cmd.Flags().String("user-agent", d.UserAgent, "User-Agent header sent with every request")
	cmd.Flags().StringP("output", "o", d.OutputPath, "Path of the CSV edge list")
	cmd.Flags().String("db", d.DBPath, "Also store the graph in this SQLite database")
	cmd.Flags().String("metrics", d.MetricsPath, "Write crawl metrics as JSON to this file on exit")
	cmd.Flags().String("metrics-addr", d.MetricsAddr, "Serve Prometheus metrics on this address")
	cmd.Flags().Int("progress-interval", d.ProgressIntervalMs, "Milliseconds between progress lines, 0 disables them")
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, crawlFlagKeys)
	if err != nil {
		return err
	}

	logrus.Infof("linkgraph %s starting: seed=%s, domain=%q (%s), min_crawls=%d",
		version.String(), cfg.SeedURL, cfg.Domain, cfg.MatchMode, cfg.MinCrawls)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	})

	return runSession(ctx, stop, cfg, fetcher)
}

// runSession crawls, then writes the edge list, the optional SQLite copy and
// the optional metrics file. release is called on the first interrupt so a
// second one falls back to the default signal behaviour.
func runSession(ctx context.Context, release func(), cfg *config.Config, fetcher crawler.Fetcher) error {
	runID := uuid.NewString()
	tracker, err := metrics.NewTracker(runID)
	if err != nil {
		return err
	}

	c := crawler.NewCrawler(cfg, fetcher, links.NewExtractor(), tracker)

	startedAt := time.Now()
	g, crawlErr := crawlWithServices(ctx, release, cfg, c, tracker)
	finishedAt := time.Now()

	logrus.Info("Final stats: " + tracker.LogProgress())

	reason := terminationReason(crawlErr)
	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}

	if crawlErr != nil {
		if reason == metrics.TerminationCanceled {
			logrus.Warn("Crawl canceled, edge list not written")
		}
		return crawlErr
	}

	closure := g.Closure()
	if err := storage.WriteEdgeListFile(cfg.OutputPath, closure); err != nil {
		logrus.Errorf("Failed to write edge list: %v", err)
		return err
	}
	logrus.Infof("Wrote %d edges to %s", len(closure), cfg.OutputPath)

	if cfg.DBPath == "" {
		return nil
	}

	run := &storage.Run{
		RunID:      runID,
		SeedURL:    cfg.SeedURL,
		Domain:     cfg.Domain,
		MatchMode:  cfg.MatchMode,
		MinCrawls:  cfg.MinCrawls,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	return saveRun(ctx, cfg.DBPath, run, g.Nodes(), closure)
}

// crawlWithServices runs the crawl next to the progress logger and the
// optional metrics listener until the crawl returns
func crawlWithServices(ctx context.Context, release func(), cfg *config.Config, c *crawler.Crawler, tracker *metrics.Tracker) (*graph.Graph, error) {
	group, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	var result *graph.Graph

	group.Go(func() error {
		defer close(done)
		g, err := c.Run(gctx)
		result = g
		return err
	})

	group.Go(func() error {
		select {
		case <-ctx.Done():
		case <-done:
		}
		if ctx.Err() != nil {
			release()
			logrus.Warn("Interrupt received, stopping crawl (interrupt again to force exit)")
		}
		return nil
	})

	if interval := cfg.ProgressInterval(); interval > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					logrus.Infof("%s | Queue: %d", tracker.LogProgress(), c.QueueSize())
				case <-done:
					return nil
				}
			}
		})
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", tracker.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		group.Go(func() error {
			logrus.Infof("Serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-done
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := group.Wait()
	return result, err
}

func terminationReason(err error) string {
	switch {
	case err == nil:
		return metrics.TerminationQueueEmpty
	case errors.Is(err, context.Canceled):
		return metrics.TerminationCanceled
	default:
		return metrics.TerminationError
	}
}

func saveRun(ctx context.Context, dbPath string, run *storage.Run, nodes []graph.Node, edges []graph.Edge) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(ctx, run, nodes, edges); err != nil {
		return err
	}
	logrus.Infof("Stored run %s in %s (%d nodes, %d edges)", run.RunID, dbPath, run.NodeCount, run.EdgeCount)
	return nil
}
