package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/browser"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/cmp"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/config"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/database"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/fetch"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/log"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/normalize"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/pipeline"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/report"
)

// crawlLogFileName is the per-run log file written into the output
// directory alongside the database.
const crawlLogFileName = "crawl.log"

// failedURLsFileName lists targets that produced an error, one URL per
// line, in a format directly usable as a --file argument for a retry run.
const failedURLsFileName = "failed_urls.txt"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl websites and collect cookie purpose declarations",
		Long: `Crawl visits each target website in a headless browser, detects which
consent management platform it runs, downloads the platform's cookie
declaration, and stores one record per declared cookie in a SQLite
database inside the output directory.

Supported platforms: Cookiebot, OneTrust (including OptAnon and
CookiePro branding), Termly.

Examples:
  # Crawl a single site
  consentcrawl crawl --url https://example.com

  # Crawl every site listed in a file (one URL per line)
  consentcrawl crawl --file targets.txt

  # Bare domains get an http:// prefix instead of being rejected
  consentcrawl crawl --assume-http --url example.com

  # Only look for one platform
  consentcrawl crawl --cmp cookiebot --file targets.txt

  # Retry the failures of a previous run
  consentcrawl crawl --file scrape_out_20260831_120000/failed_urls.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Target selection flags
	cmd.Flags().StringArrayP("url", "u", nil,
		"Target URL to crawl (repeatable)")
	cmd.Flags().StringArrayP("file", "f", nil,
		"File with one target URL per line (repeatable)")
	cmd.Flags().StringArray("json-list", nil,
		"JSON file containing an array of target URLs (repeatable)")
	cmd.Flags().Bool("assume-http", false,
		"Prefix bare domains with http:// instead of rejecting them")
	cmd.Flags().String("cmp", "",
		"Restrict the crawl to one platform: cookiebot, onetrust, or termly")

	// Browser flags
	cmd.Flags().Bool("headless", true,
		"Run the browser without a visible window")
	cmd.Flags().String("browser-bin", "",
		"Path to a browser binary (default: let the launcher resolve one)")
	cmd.Flags().Duration("nav-timeout", config.DefaultNavigationTimeout,
		"Timeout for a single page load")

	// Payload retrieval flags
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout for a single payload request")
	cmd.Flags().Int("retries", config.DefaultFetchRetries,
		"Transport retry count for payload requests")

	// Output flags
	cmd.Flags().StringP("out", "o", "",
		"Output directory (default: scrape_out_<timestamp> in the working directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .consentcrawl in the current directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, sources, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown. A
	// cancelled run still writes its summary for the targets it finished.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "received shutdown signal, finishing current target...")
		cancel()
	}()

	return runCrawl(ctx, cfg, sources)
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

// buildConfig creates a Config from the configuration file and cobra
// command flags. Flags override file values; file values override
// defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, config.TargetSources, error) {
	cfg := config.NewConfig()
	var sources config.TargetSources

	configPathFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, sources, err
	}

	// If the user explicitly specified a config file path, error if it
	// does not exist. If no path was specified, silently run without one.
	configPath := config.FindConfigFile(configPathFlag)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, sources, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if configPathFlag != "" {
		return nil, sources, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPathFlag)
	}

	// Target sources; positional arguments count as --url entries.
	sources.URLs, err = cmd.Flags().GetStringArray("url")
	if err != nil {
		return nil, sources, err
	}
	sources.URLs = append(sources.URLs, args...)

	sources.Files, err = cmd.Flags().GetStringArray("file")
	if err != nil {
		return nil, sources, err
	}

	sources.JSONFiles, err = cmd.Flags().GetStringArray("json-list")
	if err != nil {
		return nil, sources, err
	}

	if cmd.Flags().Changed("assume-http") {
		cfg.AssumeHTTP, err = cmd.Flags().GetBool("assume-http")
		if err != nil {
			return nil, sources, err
		}
	}

	cmpName, err := cmd.Flags().GetString("cmp")
	if err != nil {
		return nil, sources, err
	}
	if cmpName != "" {
		parsed, ok := model.ParseCMP(cmpName)
		if !ok {
			return nil, sources, fmt.Errorf("%w: %q", config.ErrUnknownCMP, cmpName)
		}
		cfg.CMP = parsed
	}

	if cmd.Flags().Changed("headless") {
		cfg.Headless, err = cmd.Flags().GetBool("headless")
		if err != nil {
			return nil, sources, err
		}
	}

	if cmd.Flags().Changed("browser-bin") {
		cfg.BrowserBin, err = cmd.Flags().GetString("browser-bin")
		if err != nil {
			return nil, sources, err
		}
	}

	if cmd.Flags().Changed("nav-timeout") {
		cfg.NavigationTimeout, err = cmd.Flags().GetDuration("nav-timeout")
		if err != nil {
			return nil, sources, err
		}
	}

	if cmd.Flags().Changed("fetch-timeout") {
		cfg.FetchTimeout, err = cmd.Flags().GetDuration("fetch-timeout")
		if err != nil {
			return nil, sources, err
		}
	}

	if cmd.Flags().Changed("retries") {
		cfg.FetchRetries, err = cmd.Flags().GetInt("retries")
		if err != nil {
			return nil, sources, err
		}
	}

	if cmd.Flags().Changed("out") {
		cfg.OutputDir, err = cmd.Flags().GetString("out")
		if err != nil {
			return nil, sources, err
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, sources, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, sources, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, sources, nil
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, sources config.TargetSources) error {
	outputDir, err := cfg.ResolveOutputDir(time.Now())
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Log to stderr and to a file in the output directory, so a long
	// batch run can be diagnosed after the terminal scrollback is gone.
	logFile, err := os.Create(filepath.Join(outputDir, crawlLogFileName)) //nolint:gosec // Path is under the run's own output directory
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	logger := log.NewLogger(io.MultiWriter(os.Stderr, logFile), cfg.Verbose)
	slog.SetDefault(logger)

	cfg.Targets, err = config.LoadTargets(sources, cfg.AssumeHTTP, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger.Info("starting crawl",
		"targets", len(cfg.Targets),
		"cmp", cfg.CMP.String(),
		"outputDir", outputDir,
	)

	db, err := database.Open(outputDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", db.Path())

	provider, err := browser.New(browser.Config{
		Headless:          cfg.Headless,
		Bin:               cfg.BrowserBin,
		NavigationTimeout: cfg.NavigationTimeout,
	}, browser.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}

	collector := classify.NewCollector()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoadStep(provider, logger),
		pipeline.NewDetectStep(resolver, logger),
		pipeline.NewFetchStep(fetch.New(
			fetch.WithTimeout(cfg.FetchTimeout),
			fetch.WithRetries(cfg.FetchRetries),
			fetch.WithLogger(logger),
		), logger),
		pipeline.NewParseStep(logger),
		pipeline.NewNormalizeStep(normalize.New(logger, collector)),
		pipeline.NewPersistStep(db, collector, logger),
	)

	runner := pipeline.NewRunner(p, collector,
		pipeline.WithRunnerLogger(logger),
		pipeline.WithErrorSink(db),
	)

	fmt.Printf("Crawling %d target(s)...\n\n", len(cfg.Targets))
	started := time.Now()

	reports, runErr := runner.Run(ctx, cfg.Targets)
	if runErr != nil {
		// Cancellation still yields partial reports; summarize what ran.
		logger.Warn("crawl interrupted", "error", runErr, "completed", len(reports))
	}

	finished := time.Now()
	fmt.Printf("Crawl completed in %s\n\n", finished.Sub(started).Round(time.Millisecond))

	summary := report.NewRunSummary(reports, collector, started, finished)
	if err := outputSummary(cfg, summary); err != nil {
		logger.Error("failed to write run summary", "error", err)
	}
	if err := writeFailedURLs(outputDir, summary); err != nil {
		logger.Error("failed to write failed URL list", "error", err)
	}

	return runErr
}

// buildResolver creates the platform resolver: a single-platform one
// when --cmp was given, otherwise one that tries every adapter.
func buildResolver(cfg *config.Config, logger *slog.Logger) (*cmp.Resolver, error) {
	if cfg.CMP != model.CMPNone {
		return cmp.NewSingleResolver(cfg.CMP, logger)
	}
	return cmp.NewResolver(logger), nil
}

// outputSummary writes the run summary to stdout in the requested format.
func outputSummary(cfg *config.Config, summary *report.RunSummary) error {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(os.Stdout)
	default:
		w = report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(summary)
	return err
}

// writeFailedURLs writes the failed target list into the output
// directory. Nothing is written when every target succeeded.
func writeFailedURLs(outputDir string, summary *report.RunSummary) error {
	if len(summary.FailedURLs) == 0 {
		return nil
	}

	f, err := os.Create(filepath.Join(outputDir, failedURLsFileName)) //nolint:gosec // Path is under the run's own output directory
	if err != nil {
		return err
	}
	defer f.Close()

	return report.WriteFailedURLs(f, summary)
}
