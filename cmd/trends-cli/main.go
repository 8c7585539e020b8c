package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robertmeta/trends-cli/config"
	"github.com/robertmeta/trends-cli/model"
	"github.com/robertmeta/trends-cli/orchestrator"
	"github.com/robertmeta/trends-cli/query"
	"github.com/robertmeta/trends-cli/store"
	"github.com/robertmeta/trends-cli/trends"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

// queryFlags are shared by every command that issues a trends request.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Query mode: filtered or url (default: url when --url is given)"},
		&cli.StringFlag{Name: "geo", Aliases: []string{"g"}, Usage: "Two-letter country code (default: HK)"},
		&cli.StringFlag{Name: "hl", Usage: "Language code (default: en)"},
		&cli.StringFlag{Name: "hours", Usage: "Lookback window in hours; empty for all time (default: 24)"},
		&cli.StringFlag{Name: "category", Usage: "Category code (see 'categories')"},
		&cli.StringFlag{Name: "sort", Usage: "Sort order: title, search-volume, recency, relevance"},
		&cli.StringFlag{Name: "status", Usage: "Status filter"},
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Source URL (url mode)"},
	}
}

func main() {
	app := &cli.App{
		Name:    "trends-cli",
		Usage:   "Fetch, watch and export trending searches",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"TRENDS_CLI_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Trends source: api or rss",
				EnvVars: []string{"TRENDS_CLI_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "Base URL of the trends API",
				EnvVars: []string{"TRENDS_CLI_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Snapshot archive path",
				EnvVars: []string{"TRENDS_CLI_DB"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Fetch the current trends once",
				Flags: append(queryFlags(),
					&cli.BoolFlag{
						Name:  "summary",
						Usage: "Print a text summary instead of JSON",
					},
				),
				Action: fetchTrends,
			},
			{
				Name:  "watch",
				Usage: "Fetch trends and keep refreshing them",
				Flags: append(queryFlags(),
					&cli.DurationFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Refresh interval (default: 1m)",
					},
					&cli.IntFlag{
						Name:  "max-updates",
						Usage: "Stop after this many updates (0 = run until interrupted)",
					},
				),
				Action: watchTrends,
			},
			{
				Name:  "export",
				Usage: "Export the current trends to a JSON file",
				Flags: append(queryFlags(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   ".",
						Usage:   "Output directory",
					},
					&cli.BoolFlag{
						Name:  "no-archive",
						Usage: "Do not record the snapshot in the archive",
					},
				),
				Action: exportTrends,
			},
			{
				Name:  "history",
				Usage: "List archived snapshots",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   50,
						Usage:   "Maximum number of snapshots to return",
					},
					&cli.IntFlag{
						Name:    "offset",
						Aliases: []string{"o"},
						Value:   0,
						Usage:   "Offset for pagination",
					},
					&cli.StringFlag{
						Name:    "geo",
						Aliases: []string{"g"},
						Usage:   "Filter by country code",
					},
					&cli.StringFlag{
						Name:    "since",
						Aliases: []string{"s"},
						Usage:   "Show snapshots since duration (e.g., 12h, 7d, 2w)",
					},
				},
				Action: listHistory,
			},
			{
				Name:      "show",
				Usage:     "Show an archived snapshot",
				ArgsUsage: "<snapshot-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "summary",
						Usage: "Print a text summary instead of JSON",
					},
				},
				Action: showSnapshot,
			},
			{
				Name:      "remove",
				Usage:     "Remove an archived snapshot",
				ArgsUsage: "<snapshot-id>",
				Action:    removeSnapshot,
			},
			{
				Name:   "categories",
				Usage:  "List category codes and sort orders",
				Action: listCategories,
			},
			{
				Name:  "config",
				Usage: "Manage the configuration file",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write a configuration file from the built-in defaults and global flags",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing file",
							},
						},
						Action: initConfig,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trends-cli.db"
	}
	return filepath.Join(home, ".config", "trends-cli", "trends-cli.db")
}

func getDefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trends-cli.yaml"
	}
	return filepath.Join(home, ".config", "trends-cli", "config.yaml")
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig merges the configuration file with global flags. Without
// --config the file at the default path is read when it exists.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		if _, err := os.Stat(getDefaultConfigPath()); err == nil {
			path = getDefaultConfigPath()
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyGlobalFlags(c, cfg)
	if cfg.DB == "" {
		cfg.DB = getDefaultDBPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyGlobalFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("source") {
		cfg.Source = c.String("source")
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
}

func newSource(cfg *config.Config, logger *slog.Logger) orchestrator.Source {
	if cfg.Source == config.SourceRSS {
		opts := []trends.FeedOption{trends.WithFeedLogger(logger)}
		if cfg.FeedURL != "" {
			opts = append(opts, trends.WithFeedURL(cfg.FeedURL))
		}
		return trends.NewFeedSource(opts...)
	}
	return trends.NewClient(cfg.Endpoint,
		trends.WithHTTPClient(trends.NewHTTPClient(cfg.RequestTimeout())),
		trends.WithLogger(logger),
	)
}

// session bundles what a request command needs.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	query  model.Query
	orch   *orchestrator.Orchestrator
}

func newSession(c *cli.Context, opts ...orchestrator.Option) (*session, error) {
	logger := newLogger(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), ExitUsageError)
	}

	q, err := queryFromFlags(c, cfg)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Invalid query: %v", err), ExitUsageError)
	}

	opts = append([]orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithTimeout(cfg.RequestTimeout()),
	}, opts...)

	return &session{
		cfg:    cfg,
		logger: logger,
		query:  q,
		orch:   orchestrator.New(newSource(cfg, logger), opts...),
	}, nil
}

// queryFromFlags applies the query flags on top of the configured defaults.
func queryFromFlags(c *cli.Context, cfg *config.Config) (model.Query, error) {
	base, err := cfg.Query()
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	for _, field := range model.Fields {
		if c.IsSet(field) {
			values[field] = c.String(field)
		}
	}

	mode := base.Mode()
	switch {
	case c.IsSet("mode"):
		m, ok := model.ParseMode(c.String("mode"))
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidMode, c.String("mode"))
		}
		mode = m
	case c.IsSet("url"):
		mode = model.ModeURL
	}

	return query.Build(base, values, mode)
}

func fetchTrends(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.orch.Close()

	s.orch.FetchNow(s.query)
	s.orch.Wait()

	state := s.orch.State()
	if state.Status == model.StatusError {
		return cli.Exit(state.ErrorMessage, ExitDataError)
	}

	if c.Bool("summary") {
		return printSummary(os.Stdout, state.Result)
	}
	return outputJSON(map[string]interface{}{
		"query": query.Serialize(s.query),
		"state": state,
	})
}

func watchTrends(c *cli.Context) error {
	updates := make(chan model.FetchState, 16)
	logger := newLogger(c)

	s, err := newSession(c, orchestrator.WithObserver(func(state model.FetchState) {
		if state.Status == model.StatusLoading {
			return
		}
		select {
		case updates <- state:
		default:
			logger.Warn("output is falling behind, dropping update")
		}
	}))
	if err != nil {
		return err
	}
	defer s.orch.Close()

	interval := s.cfg.RefreshInterval()
	if c.IsSet("interval") {
		interval = c.Duration("interval")
	}
	maxUpdates := c.Int("max-updates")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		seen := 0
		for {
			select {
			case <-gctx.Done():
				return nil
			case state := <-updates:
				if err := outputJSONLine(state); err != nil {
					return err
				}
				seen++
				if maxUpdates > 0 && seen >= maxUpdates {
					stop()
					return nil
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.orch.SetAutoRefresh(false, 0, nil)
	})

	s.orch.FetchNow(s.query)
	if err := s.orch.SetAutoRefresh(true, interval, s.query); err != nil {
		stop()
		g.Wait()
		return cli.Exit(fmt.Sprintf("Invalid interval: %v", err), ExitUsageError)
	}
	s.logger.Info("watching trends", "query", query.Serialize(s.query), "interval", interval)

	return g.Wait()
}

func exportTrends(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.orch.Close()

	snap, err := s.orch.ExportSnapshot(c.Context, s.query)
	if err != nil {
		var serErr *model.SerializationError
		if errors.As(err, &serErr) {
			return cli.Exit(fmt.Sprintf("Failed to serialize trends: %v", err), ExitGeneralError)
		}
		return cli.Exit(fmt.Sprintf("Failed to download trends data: %v", err), ExitDataError)
	}

	dir := c.String("output")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to create output directory: %v", err), ExitDataError)
	}
	path := filepath.Join(dir, snap.Filename)
	if err := os.WriteFile(path, snap.Data, 0644); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to write %s: %v", path, err), ExitDataError)
	}

	out := map[string]interface{}{
		"success": true,
		"file":    path,
		"name":    snap.Name,
		"count":   snap.Result.TotalCount,
	}

	if !c.Bool("no-archive") {
		st, err := getStore(s.cfg)
		if err != nil {
			return cli.Exit(err.Error(), ExitDataError)
		}
		defer st.Close()

		if err := st.SaveSnapshot(snap); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to archive snapshot: %v", err), ExitDataError)
		}
		out["id"] = snap.ID
	}

	return outputJSON(out)
}

func getStore(cfg *config.Config) (*store.Store, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(cfg.DB)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return s, nil
}

func openArchive(c *cli.Context) (*store.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), ExitUsageError)
	}
	s, err := getStore(cfg)
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitDataError)
	}
	return s, nil
}

func listHistory(c *cli.Context) error {
	opts, err := store.BuildListOptions(
		c.Int("limit"),
		c.Int("offset"),
		c.String("geo"),
		c.String("since"),
		timeNow(),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid query options: %v", err), ExitUsageError)
	}

	s, err := openArchive(c)
	if err != nil {
		return err
	}
	defer s.Close()

	snapshots, err := s.ListSnapshots(opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to list snapshots: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"count":     len(snapshots),
		"limit":     opts.Limit,
		"offset":    opts.Offset,
		"snapshots": snapshots,
	})
}

func showSnapshot(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: trends-cli show <snapshot-id>", ExitUsageError)
	}

	s, err := openArchive(c)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.GetSnapshot(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get snapshot: %v", err), ExitDataError)
	}

	if c.Bool("summary") {
		return printSummary(os.Stdout, snap.Result)
	}
	return outputJSON(snap)
}

func removeSnapshot(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: trends-cli remove <snapshot-id>", ExitUsageError)
	}

	s, err := openArchive(c)
	if err != nil {
		return err
	}
	defer s.Close()

	id := c.Args().Get(0)
	if err := s.DeleteSnapshot(id); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to delete snapshot: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success":     true,
		"snapshot_id": id,
	})
}

func listCategories(c *cli.Context) error {
	return outputJSON(map[string]interface{}{
		"categories": model.Categories,
		"sort":       model.SortOrders,
	})
}

func initConfig(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = getDefaultConfigPath()
	}

	cfg := config.Default()
	applyGlobalFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), ExitUsageError)
	}

	if err := writeConfig(path, cfg, c.Bool("force")); err != nil {
		return cli.Exit(err.Error(), ExitGeneralError)
	}

	return outputJSON(map[string]interface{}{
		"success": true,
		"file":    path,
	})
}

// writeConfig saves cfg to path, refusing to replace an existing file
// unless force is set.
func writeConfig(path string, cfg *config.Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return cfg.Save(path)
}
