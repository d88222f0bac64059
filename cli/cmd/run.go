package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crier/adapter"
	redisadapter "github.com/pithecene-io/crier/adapter/redis"
	"github.com/pithecene-io/crier/announce"
	"github.com/pithecene-io/crier/archive"
	"github.com/pithecene-io/crier/cli/config"
	"github.com/pithecene-io/crier/log"
	"github.com/pithecene-io/crier/metrics"
	"github.com/pithecene-io/crier/registry"
	"github.com/pithecene-io/crier/runner"
	"github.com/pithecene-io/crier/runners"
	"github.com/pithecene-io/crier/runtime"
	"github.com/pithecene-io/crier/scrape"
	"github.com/pithecene-io/crier/store"
)

// Exit codes for the run action.
const (
	exitSuccess    = 0
	exitFailure    = 1
	exitMissingEnv = 2
)

// defaultDatabase is the SQLite file used when neither --db nor the
// config file names one. Matches the scraper platform convention.
const defaultDatabase = "data.sqlite"

// RunFlags returns the flags for the root run action.
func RunFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to crier.yaml",
		},
		&cli.StringSliceFlag{
			Name:    "runners",
			Aliases: []string{"r"},
			Usage:   "Select runners whose names contain any of these terms",
			EnvVars: []string{runner.EnvRunners},
		},
		&cli.BoolFlag{
			Name:  "list-runners",
			Usage: "Print registered runner names and exit",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite database path",
		},
		&cli.StringFlag{
			Name:  "report-file",
			Usage: "Write a JSON run report to this path (\"-\" for stderr)",
		},
	}
}

// RunAction is the root action: one full harness invocation.
func RunAction(c *cli.Context) error {
	// Listing touches no configuration and no storage.
	if c.Bool("list-runners") {
		for _, name := range registry.Default.Names() {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	}

	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		cfg = loaded
	}

	live := os.Getenv(runner.EnvLiveMode) == "true"
	runID := runtime.NewRunID()
	logger := log.NewLogger(runID)
	collector := metrics.NewCollector(runID, live)

	filters := c.StringSlice("runners")
	if len(filters) == 0 {
		filters = cfg.Runners
	}

	dbPath := c.String("db")
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath == "" {
		dbPath = defaultDatabase
	}

	st, err := store.Open(store.Config{Path: dbPath})
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer func() { _ = st.Close() }()

	// Webhook URL: config first, the environment as fallback. The env
	// closure hands the same resolution to runner validation so a
	// config-only URL still passes the required-env check.
	webhookURL := cfg.Webhook.URL
	if webhookURL == "" {
		webhookURL = os.Getenv(runner.EnvWebhookURL)
	}
	getenv := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if key == runner.EnvWebhookURL {
			return cfg.Webhook.URL
		}
		return ""
	}

	var poster runner.Poster
	if live {
		if webhookURL == "" {
			return cli.Exit("live mode requires "+runner.EnvWebhookURL, exitMissingEnv)
		}
		client, err := announce.New(announce.Config{
			URL:      webhookURL,
			Username: cfg.Webhook.Username,
			Channel:  cfg.Webhook.Channel,
			Timeout:  cfg.Webhook.Timeout.Duration,
		})
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		defer func() { _ = client.Close() }()
		poster = client
	}

	events, err := buildEvents(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	if events != nil {
		defer func() { _ = events.Close() }()
	}

	var archiveSink archive.Sink
	var archiveReader archive.Reader
	if cfg.Archive.Path != "" {
		ds, err := archive.New(archive.Config{
			Dataset:      cfg.Archive.Dataset,
			Backend:      cfg.Archive.Backend,
			Path:         cfg.Archive.Path,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.PathStyle,
		})
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		defer func() { _ = ds.Close() }()
		archiveSink = ds
		archiveReader = ds
	}

	// Re-register the built-ins with loaded configuration. Later
	// registration wins, so this replaces the zero-config entries from
	// package init.
	runners.Register(registry.Default, runners.Config{
		Endpoints:    cfg.Watchdog.Endpoints,
		Archive:      archiveReader,
		LookbackDays: cfg.Harvest.LookbackDays,
	})

	fetch := scrape.New(scrape.Config{
		TTL:       cfg.Fetch.TTL.Duration,
		Timeout:   cfg.Fetch.Timeout.Duration,
		UserAgent: cfg.Fetch.UserAgent,
	}, scrape.NewCache(st), collector)

	orchestrator, err := runtime.NewOrchestrator(&runtime.RunConfig{
		Store:       st,
		Registry:    registry.Default,
		Poster:      poster,
		Deps:        &runner.Deps{Store: st, Fetch: fetch, Log: logger},
		Adapter:     events,
		Archive:     archiveSink,
		Collector:   collector,
		Logger:      logger,
		RunID:       runID,
		Live:        live,
		Filters:     filters,
		RecencyDays: cfg.RecencyDays,
		Delay:       cfg.AnnounceDelay(),
		Out:         c.App.Writer,
		Getenv:      getenv,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		var missing *runner.MissingEnvError
		if errors.As(err, &missing) {
			return cli.Exit(err.Error(), exitMissingEnv)
		}
		return cli.Exit(err.Error(), exitFailure)
	}

	if path := c.String("report-file"); path != "" {
		report := runtime.BuildRunReport(result, live)
		if err := runtime.WriteRunReport(report, path); err != nil {
			return cli.Exit(fmt.Sprintf("write report: %v", err), exitFailure)
		}
	}

	printRunSummary(c.App.Writer, result)
	return nil
}

// buildEvents creates the redis event adapter when an events URL is
// configured. Returns a nil adapter otherwise.
func buildEvents(cfg *config.Config) (adapter.Adapter, error) {
	if cfg.Events.URL == "" {
		return nil, nil
	}
	retries := redisadapter.DefaultRetries
	if cfg.Events.Retries != nil {
		retries = *cfg.Events.Retries
	}
	a, err := redisadapter.New(redisadapter.Config{
		URL:     cfg.Events.URL,
		Channel: cfg.Events.Channel,
		Timeout: cfg.Events.Timeout.Duration,
		Retries: retries,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func printRunSummary(w io.Writer, result *runtime.RunResult) {
	m := result.Metrics
	fmt.Fprintf(w, "\nrun %s: %d selected, %d posted, %d skipped, %d dry-run, %d silent, %d failed\n",
		result.RunID, m.RunnersSelected, m.Posted, m.SkippedRecent, m.DryRuns, m.NoUpdates, m.PostFailures)
}
