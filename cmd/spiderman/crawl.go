package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/spiderman/internal/config"
	"github.com/nao1215/spiderman/internal/crawler"
	"github.com/nao1215/spiderman/internal/database"
	"github.com/nao1215/spiderman/internal/dupfilter"
	logpkg "github.com/nao1215/spiderman/internal/log"
	"github.com/nao1215/spiderman/internal/metrics"
	"github.com/nao1215/spiderman/internal/processor"
	"github.com/nao1215/spiderman/internal/report"
	"github.com/nao1215/spiderman/internal/scheduler"
	"github.com/nao1215/spiderman/internal/scraper"
	"github.com/nao1215/spiderman/internal/stats"
	"github.com/nao1215/spiderman/internal/tor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	// shutdownTimeout bounds Stop and Disconnect after the crawl ended.
	shutdownTimeout = 30 * time.Second

	// interruptGracePeriod bounds Stop after Ctrl-C.
	interruptGracePeriod = 2 * time.Second
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl a web site starting at the given URL",
		Long: `Crawl fetches the given URL, follows its links and processes every page.

Only links to the start host are followed unless --any-host is set.
robots.txt is honored unless --ignore-robots is set. The crawl ends when
no page is left to scrape or process, or on Ctrl-C.

Examples:
  # Crawl a site and print a text report
  spiderman crawl https://example.com/

  # Store pages in SQLite and write them as JSON lines
  spiderman crawl --save-db --jsonl pages.jsonl https://example.com/

  # Slow crawl through a SOCKS proxy
  spiderman crawl --tasks-per-min 20 --proxy socks5h://127.0.0.1:9050 https://example.com/

  # Crawl through an embedded Tor daemon
  spiderman crawl --tor http://exampleonion.onion/

  # Markdown report written to a file
  spiderman crawl --report markdown -o report.md https://example.com/

Configuration file (.spiderman) example:
  crawl:
    maxScrapers: 4
    tasksPerMinPerQueue: 60
  sites:
    example.com:
      cookie: "session_id=abc123"
      ignorePatterns:
        - "/logout"`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	defaults := config.NewConfig()

	// Scheduler flags
	cmd.Flags().Int("short-retries", defaults.ShortRetries,
		"Queue level retries of a failing job")
	cmd.Flags().Int("long-retries", defaults.LongRetries,
		"Retries of a page whose scraping or processing failed")
	cmd.Flags().IntP("max-scrapers", "s", defaults.MaxScrapers,
		"Maximum number of concurrent scrapers")
	cmd.Flags().IntP("max-data-processors", "p", defaults.MaxDataProcessors,
		"Maximum number of concurrent data processors")
	cmd.Flags().IntP("tasks-per-min", "r", defaults.TasksPerMinPerQueue,
		"Jobs started per minute and queue")
	cmd.Flags().Duration("min-time", defaults.MinTime,
		"Minimum gap between two job starts of a queue")
	cmd.Flags().String("dup-filter", string(defaults.DupFilter),
		"Duplicate filter: set, bloom or redis-bloom")
	cmd.Flags().String("redis-addr", defaults.RedisAddress,
		"Redis address of the redis-bloom duplicate filter")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", defaults.Timeout,
		"Timeout of each request")
	cmd.Flags().Int64("max-body-size", defaults.MaxBodySize,
		"Maximum number of body bytes read per response")
	cmd.Flags().StringSliceP("user-agent", "u", nil,
		"User agent, repeatable (picked at random per request)")
	cmd.Flags().StringSlice("proxy", nil,
		"Proxy URL, repeatable (http, https, socks5, socks5h)")
	cmd.Flags().Bool("tor", false,
		"Route every request through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", defaults.TorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Scope flags
	cmd.Flags().Bool("any-host", false,
		"Follow links to other hosts")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not honor robots.txt")
	cmd.Flags().IntP("depth", "d", 0,
		"Maximum number of path segments of followed URLs (0 = unlimited)")

	// Output flags
	cmd.Flags().Bool("save-db", false,
		"Store crawled pages in the SQLite database")
	cmd.Flags().String("db", defaults.DBPath,
		"SQLite database path (implies --save-db)")
	cmd.Flags().String("jsonl", "",
		"Write every crawled page as a JSON line to this file")
	cmd.Flags().String("report", defaults.ReportFormat,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address, e.g. :9090")

	// Logging flags
	cmd.Flags().String("log-level", defaults.LogLevel,
		"Log level: debug, info, warn or error")
	cmd.Flags().Bool("log-json", false,
		"Write JSON log records")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .spiderman in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping crawl...")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err = runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
	return err
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the defaults, the configuration file
// and the flags, in increasing precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named configuration file must exist.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// set applies a flag only when it was given on the command line, so
	// that unset flags keep the values of the configuration file.
	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}

	set("short-retries", func() (e error) { cfg.ShortRetries, e = flags.GetInt("short-retries"); return })
	set("long-retries", func() (e error) { cfg.LongRetries, e = flags.GetInt("long-retries"); return })
	set("max-scrapers", func() (e error) { cfg.MaxScrapers, e = flags.GetInt("max-scrapers"); return })
	set("max-data-processors", func() (e error) {
		cfg.MaxDataProcessors, e = flags.GetInt("max-data-processors")
		return
	})
	set("tasks-per-min", func() (e error) { cfg.TasksPerMinPerQueue, e = flags.GetInt("tasks-per-min"); return })
	set("min-time", func() (e error) { cfg.MinTime, e = flags.GetDuration("min-time"); return })
	set("dup-filter", func() error {
		kind, e := flags.GetString("dup-filter")
		cfg.DupFilter = dupfilter.Kind(kind)
		return e
	})
	set("redis-addr", func() (e error) { cfg.RedisAddress, e = flags.GetString("redis-addr"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("max-body-size", func() (e error) { cfg.MaxBodySize, e = flags.GetInt64("max-body-size"); return })
	set("user-agent", func() (e error) { cfg.UserAgents, e = flags.GetStringSlice("user-agent"); return })
	set("proxy", func() (e error) { cfg.Proxies, e = flags.GetStringSlice("proxy"); return })
	set("tor", func() (e error) { cfg.UseTor, e = flags.GetBool("tor"); return })
	set("tor-timeout", func() (e error) { cfg.TorStartupTimeout, e = flags.GetDuration("tor-timeout"); return })
	set("any-host", func() (e error) { cfg.AnyHost, e = flags.GetBool("any-host"); return })
	set("ignore-robots", func() (e error) { cfg.IgnoreRobots, e = flags.GetBool("ignore-robots"); return })
	set("depth", func() (e error) { cfg.MaxDepth, e = flags.GetInt("depth"); return })
	set("save-db", func() (e error) { cfg.SaveToDB, e = flags.GetBool("save-db"); return })
	set("db", func() (e error) {
		cfg.SaveToDB = true
		cfg.DBPath, e = flags.GetString("db")
		return
	})
	set("jsonl", func() (e error) { cfg.JSONLinesFile, e = flags.GetString("jsonl"); return })
	set("report", func() (e error) { cfg.ReportFormat, e = flags.GetString("report"); return })
	set("output", func() (e error) { cfg.ReportFile, e = flags.GetString("output"); return })
	set("metrics-addr", func() (e error) { cfg.MetricsAddr, e = flags.GetString("metrics-addr"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = flags.GetString("log-level"); return })
	set("log-json", func() (e error) { cfg.LogJSON, e = flags.GetBool("log-json"); return })
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	if len(args) > 0 {
		cfg.URL = args[0]
	}
	return cfg, nil
}

// setupLogger creates a structured logger writing to w. Verbose wins over
// the configured level.
func setupLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logpkg.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logpkg.New(w, level, cfg.LogJSON), nil
}

// runCrawl crawls cfg.URL until no work is left or ctx is cancelled, then
// writes the report. The returned summary is nil when the crawl could not
// be started.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*report.Summary, error) {
	logger.Info("starting crawl",
		"url", cfg.URL,
		"maxScrapers", cfg.MaxScrapers,
		"maxDataProcessors", cfg.MaxDataProcessors,
		"tasksPerMin", cfg.TasksPerMinPerQueue,
		"dupFilter", cfg.DupFilter,
		"saveToDB", cfg.SaveToDB,
	)

	proxies := cfg.Proxies
	if cfg.UseTor {
		embeddedTor, err := startEmbeddedTor(ctx, cfg, logger, out)
		if err != nil {
			return nil, err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		proxyURL, err := embeddedTor.ProxyURL()
		if err != nil {
			return nil, err
		}
		proxies = []string{proxyURL}
	}

	sc, err := scraper.New(scraper.HTMLParser{},
		scraper.WithLogger(logger),
		scraper.WithUserAgents(cfg.UserAgents...),
		scraper.WithProxies(proxies...),
		scraper.WithTimeout(cfg.Timeout),
		scraper.WithMaxBodySize(cfg.MaxBodySize),
		scraper.WithSites(cfg.Sites),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}

	pipeline := processor.NewPipeline(processor.WithPipelineLogger(logger))

	if cfg.JSONLinesFile != "" {
		f, err := createOutputFile(cfg.JSONLinesFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		pipeline.AddStep(processor.NewJSONLinesStep(f))
	}

	var store *database.PageStore
	if cfg.SaveToDB {
		store, err = database.Open(cfg.DBPath, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "path", cfg.DBPath)
		pipeline.AddStep(processor.NewSaveStep(store))
	}

	proc, err := processor.New(pipeline, processor.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	options := cfg.SchedulerOptions()

	classifierOpts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithDataProcessor(proc),
		crawler.WithSites(cfg.Sites),
		crawler.WithAnyHost(cfg.AnyHost),
		crawler.WithMaxDepth(cfg.MaxDepth),
	}
	if !cfg.IgnoreRobots {
		robots, err := newRobotsChecker(cfg, proxies)
		if err != nil {
			return nil, err
		}
		classifierOpts = append(classifierOpts, crawler.WithRobots(robots))
		options.MinTime = honorCrawlDelay(ctx, robots, cfg.URL, options.MinTime, logger)
	}

	classifier, err := crawler.NewClassifier(sc, []string{cfg.URL}, classifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	filter, err := dupfilter.New(cfg.DupFilterConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create duplicate filter: %w", err)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithDuplicateFilter(filter),
		scheduler.WithDoneHandler(func(snap stats.Snapshot) {
			logger.Info("crawl done",
				"scraped", snap.Counts.Success.Scraping,
				"processed", snap.Counts.Success.DataProcessing,
				"failed", snap.Counts.HardFailure.Scraping+snap.Counts.HardFailure.DataProcessing,
			)
		}),
	}

	if cfg.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		schedOpts = append(schedOpts, scheduler.WithObserver(metrics.NewRecorder(registry)))

		server, err := serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx) //nolint:errcheck // best effort cleanup
		}()
	}

	sched, err := scheduler.New(cfg.URL, classifier, options, schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	fmt.Fprintf(out, "Crawling %s...\n", cfg.URL)
	summary := &report.Summary{
		StartURL:  cfg.URL,
		StartedAt: time.Now(),
	}

	if err := sched.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start crawl: %w", err)
	}

	waitErr := sched.Wait(ctx)
	summary.Interrupted = waitErr != nil

	// ctx may be cancelled already; shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// An interrupted crawl waits briefly for running attempts; Disconnect
	// cancels the rest.
	stopTimeout := shutdownTimeout
	if summary.Interrupted {
		stopTimeout = interruptGracePeriod
	}
	stopCtx, cancelStop := context.WithTimeout(shutdownCtx, stopTimeout)
	if err := sched.Stop(stopCtx, !summary.Interrupted); err != nil {
		logger.Warn("running attempts did not finish", "error", err)
	}
	cancelStop()
	if err := sched.Disconnect(shutdownCtx); err != nil {
		logger.Error("failed to disconnect scheduler", "error", err)
	}

	summary.FinishedAt = time.Now()
	summary.Stats = sched.Stats()

	fmt.Fprintf(out, "Crawl finished in %s (%s)\n\n",
		summary.Duration().Round(time.Millisecond), summary.Status())

	if store != nil {
		if err := saveSession(shutdownCtx, store, summary, logger); err != nil {
			logger.Error("failed to save session", "error", err)
		}
	}

	if err := outputReport(cfg, summary, out); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	return summary, nil
}

// newRobotsChecker returns a robots.txt checker that fetches through the
// first proxy, or directly when there is none.
func newRobotsChecker(cfg *config.Config, proxies []string) (*crawler.RobotsChecker, error) {
	var proxyURL string
	if len(proxies) > 0 {
		proxyURL = proxies[0]
	}
	client, err := scraper.NewHTTPClient(proxyURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt client: %w", err)
	}

	userAgent := config.DefaultUserAgent
	if len(cfg.UserAgents) > 0 {
		userAgent = cfg.UserAgents[0]
	}
	return crawler.NewRobotsChecker(client, userAgent, crawler.DefaultRobotsCacheTTL), nil
}

// honorCrawlDelay raises minTime to the Crawl-delay of the start host.
func honorCrawlDelay(ctx context.Context, robots *crawler.RobotsChecker, startURL string, minTime time.Duration, logger *slog.Logger) time.Duration {
	allowed, err := robots.IsAllowed(ctx, startURL)
	if err != nil {
		logger.Warn("failed to check robots.txt", "url", startURL, "error", err)
		return minTime
	}
	if !allowed {
		logger.Warn("start URL is disallowed by robots.txt", "url", startURL)
	}

	u, err := url.Parse(startURL)
	if err != nil {
		return minTime
	}
	if delay := robots.CrawlDelay(u.Host); delay > minTime {
		logger.Info("honoring robots.txt crawl delay", "host", u.Host, "delay", delay)
		return delay
	}
	return minTime
}

// serveMetrics serves the metrics of registry on addr until the returned
// server is shut down. The server's Addr is the bound address.
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) (*http.Server, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", server.Addr)
	return server, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*tor.EmbeddedTor, error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithLogger(logger),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	fmt.Fprintf(out, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())
	return embeddedTor, nil
}

// saveSession stores the crawl summary in the database.
func saveSession(ctx context.Context, store *database.PageStore, summary *report.Summary, logger *slog.Logger) error {
	id, err := store.SaveSession(ctx, &database.Session{
		StartURL:   summary.StartURL,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Stats:      summary.Stats,
	})
	if err != nil {
		return err
	}
	logger.Info("session saved to database", "id", id, "url", summary.StartURL)
	return nil
}

// outputReport writes the summary in the configured format to the report
// file, or to out when no file is configured.
func outputReport(cfg *config.Config, summary *report.Summary, out io.Writer) error {
	if cfg.ReportFile != "" {
		f, err := createOutputFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	writer, err := report.NewWriter(cfg.ReportFormat, out)
	if err != nil {
		return err
	}
	_, err = writer.Write(summary)
	return err
}

// createOutputFile creates or truncates path with owner-only permissions,
// creating missing directories.
func createOutputFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
