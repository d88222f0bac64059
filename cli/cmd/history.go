package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crier/cli/config"
	"github.com/pithecene-io/crier/cli/render"
	"github.com/pithecene-io/crier/cli/tui"
	"github.com/pithecene-io/crier/store"
)

// HistoryCommand returns the history command: recent post records,
// with a stats subcommand for per-runner aggregates.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent posts",
		Flags: append(ReadOnlyFlags(), append(storeFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of posts to return",
				Value: 20,
			})...),
		Action: historyAction,
		Subcommands: []*cli.Command{
			historyStatsCommand(),
		},
	}
}

// storeFlags returns the flags read-only commands use to locate the
// database.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to crier.yaml",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite database path",
		},
	}
}

func historyAction(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer func() { _ = st.Close() }()

	posts, err := st.RecentPosts(c.Context, c.Int("limit"))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	if c.Bool("tui") {
		stats, err := st.PostStats(c.Context)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		return tui.RunHistory(posts, stats)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(posts)
}

func historyStatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show per-runner post counts",
		Flags:  append(ReadOnlyFlags(), storeFlags()...),
		Action: historyStatsAction,
	}
}

func historyStatsAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for history stats", exitFailure)
	}

	st, err := openStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer func() { _ = st.Close() }()

	stats, err := st.PostStats(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(stats)
}

// openStore resolves the database path (--db, then the config file,
// then the default) and opens it.
func openStore(c *cli.Context) (*store.Store, error) {
	dbPath := c.String("db")
	if dbPath == "" && c.String("config") != "" {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
		dbPath = cfg.Database
	}
	if dbPath == "" {
		dbPath = defaultDatabase
	}
	return store.Open(store.Config{Path: dbPath})
}
