package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/database"
	seolog "github.com/nao1215/seoscan/internal/log"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/pipeline"
	"github.com/nao1215/seoscan/internal/report"
	"github.com/spf13/cobra"
)

// stdoutPath selects standard output as the report destination.
const stdoutPath = "-"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl a website and write an SEO report",
		Long: `Crawl starts at each seed URL, follows links on the same host up to the
page limit and records for every page:
- the <title> text
- the meta description
- the canonical link
- the number of images without alt text
It also checks whether the host serves robots.txt and sitemap.xml.

The report format follows the extension of --output (.pdf, .md, .json,
anything else is plain text) unless --json, --markdown or --text is given.

Examples:
  # Crawl up to 5 pages and write seo_report.pdf
  seoscan crawl https://example.com/

  # Crawl 50 pages with 4 concurrent fetches into a Markdown report
  seoscan crawl -l 50 --workers 4 -o report.md https://example.com/

  # Print a text report to stdout without saving to the history database
  seoscan crawl --text -o - --no-save https://example.com/

  # Crawl several sites, two at a time; one report per site
  seoscan crawl --batch 2 https://a.example/ https://b.example/

Configuration file (.seoscan) example:
  defaults:
    limit: 20
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Report file path; \"-\" writes to stdout")
	cmd.Flags().IntP("limit", "l", config.DefaultMaxPages,
		"Maximum number of pages to crawl per seed")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetches within one crawl (1 keeps depth-first order)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")
	cmd.Flags().String("host-match", config.DefaultHostMatch,
		"How links are kept on site: contains, exact or domain")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoscan in current or home directory)")

	cmd.Flags().BoolP("json", "j", false, "Write a JSON report")
	cmd.Flags().BoolP("markdown", "m", false, "Write a Markdown report")
	cmd.Flags().Bool("text", false, "Write a plain text report")

	cmd.Flags().String("metrics-file", "",
		"Write crawl metrics in Prometheus text format to this file")
	cmd.Flags().Bool("no-save", false,
		"Do not store the crawl in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl history database")

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

	logger := seolog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, newConsole(cmd, cfg), logger)
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

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.HostMatch, err = flags.GetString("host-match"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.TextReport, err = flags.GetBool("text"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.Verbose = getVerboseFlag(cmd)

	// A missing file only matters when the user named it.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Targets = args
	return cfg, nil
}

// console serializes human-readable progress output.
// Crawl workers report pages concurrently.
type console struct {
	mu     sync.Mutex
	out    io.Writer
	stdout io.Writer
}

// newConsole sends progress to stdout, or to stderr when the report itself
// goes to stdout.
func newConsole(cmd *cobra.Command, cfg *config.Config) *console {
	out := cmd.OutOrStdout()
	if cfg.ReportFile == stdoutPath {
		out = cmd.ErrOrStderr()
	}
	return &console{out: out, stdout: cmd.OutOrStdout()}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// runCrawl crawls every target and writes one report per target.
func runCrawl(ctx context.Context, cfg *config.Config, con *console, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"limit", cfg.MaxPages,
		"workers", cfg.Workers,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	run := &crawlRun{
		cfg:     cfg,
		con:     con,
		logger:  logger,
		db:      db,
		metrics: recorder,
	}

	startTime := time.Now()
	var err error
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		err = run.batch(ctx)
	} else {
		err = run.sequential(ctx)
	}

	if cfg.MetricsFile != "" {
		if werr := recorder.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}

	if len(cfg.Targets) > 1 {
		con.printf("\nCrawled %d sites in %s\n", len(cfg.Targets), time.Since(startTime).Round(time.Millisecond))
	}

	if err != nil {
		if isInterrupted(err) {
			con.printf("Interrupted, reports contain the pages crawled so far\n")
		}
		return err
	}
	if failed := run.failures(); failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(cfg.Targets))
	}
	return nil
}

// crawlRun carries the shared state of one crawl command.
type crawlRun struct {
	cfg     *config.Config
	con     *console
	logger  *slog.Logger
	db      *database.CrawlDB
	metrics *metrics.Recorder

	mu     sync.Mutex
	failed int
}

// sequential crawls targets one at a time.
func (r *crawlRun) sequential(ctx context.Context) error {
	for i, target := range r.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.con.printf("Crawling %s...\n", target)
		crawlReport := model.NewCrawlReport(target, 0)
		if err := r.pipelineFor(target).Execute(ctx, crawlReport); err != nil {
			r.logger.Warn("crawl failed", "seed", target, "error", err)
		}
		r.finish(crawlReport, i)
	}
	return ctx.Err()
}

// batch crawls targets concurrently with a BatchProcessor.
func (r *crawlRun) batch(ctx context.Context) error {
	r.con.printf("Crawling %d sites (concurrency: %d)...\n\n", len(r.cfg.Targets), r.cfg.BatchSize)

	bp := pipeline.NewBatchProcessor(
		r.pipelineFor,
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithBatchLogger(r.logger),
	)

	return bp.ProcessBatchWithCallback(ctx, r.cfg.Targets, func(crawlReport *model.CrawlReport, index int) {
		r.con.printf("[%d/%d] Crawl completed: %s\n", index+1, len(r.cfg.Targets), crawlReport.Seed)
		r.finish(crawlReport, index)
	})
}

// pipelineFor builds the pipeline of one seed with its site configuration.
func (r *crawlRun) pipelineFor(seed string) *pipeline.Pipeline {
	host := model.HostOf(seed)
	site := r.cfg.SiteConfigFor(host)

	limit := r.cfg.MaxPages
	if site.Limit > 0 {
		limit = site.Limit
	}

	hostMatch, err := crawler.ParseHostMatch(r.cfg.HostMatch)
	if err != nil {
		hostMatch = crawler.HostMatchContains
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineMaxPages(limit),
		pipeline.WithPipelineWorkers(r.cfg.Workers),
		pipeline.WithPipelineHostMatch(hostMatch),
		pipeline.WithPipelineTimeout(r.cfg.Timeout),
		pipeline.WithPipelineUserAgent(r.cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(r.cfg.MaxBodySize),
		pipeline.WithPipelineLogger(r.logger),
		pipeline.WithPipelineMetrics(r.metrics),
		pipeline.WithPipelineSiteHost(host),
		pipeline.WithPipelinePageCallback(func(page *model.PageReport) {
			r.con.printf("  [%d] %s\n", page.Order+1, page.URL)
		}),
	}
	if site.Cookie != "" {
		configOpts = append(configOpts, pipeline.WithPipelineCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineHeaders(site.Headers))
	}
	if len(site.IgnorePatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineIgnorePatterns(site.IgnorePatterns))
	}
	if len(site.FollowPatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineFollowPatterns(site.FollowPatterns))
	}
	if r.db != nil {
		configOpts = append(configOpts, pipeline.WithPipelineStore(r.db))
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(r.logger),
		pipeline.WithContinueOnError(true),
	}
	return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
}

// finish writes the report of a completed crawl and prints its outcome.
func (r *crawlRun) finish(crawlReport *model.CrawlReport, index int) {
	if crawlFailed(crawlReport) {
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
		r.con.printf("Crawl error for %s: %s\n", crawlReport.Seed, crawlReport.ErrorMessage)
		return
	}

	path, err := writeReport(r.cfg, crawlReport, index, r.con)
	if err != nil {
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
		r.logger.Error("report failed", "seed", crawlReport.Seed, "error", err)
		r.con.printf("Report error for %s: %v\n", crawlReport.Seed, err)
		return
	}

	status := ""
	if crawlReport.TimedOut || crawlReport.ErrorMessage != "" {
		status = " (partial)"
	}
	r.con.printf("Crawled %d page(s) of %s in %s%s\n",
		crawlReport.PageCount(), crawlReport.Seed,
		crawlReport.Duration().Round(time.Millisecond), status)
	if path != "" {
		r.con.printf("Report written to %s\n", path)
	}
}

func (r *crawlRun) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// crawlFailed reports whether a crawl produced nothing worth rendering.
// Interrupted crawls that fetched pages keep their partial report.
func crawlFailed(crawlReport *model.CrawlReport) bool {
	return crawlReport.ErrorMessage != "" && crawlReport.PageCount() == 0
}

// reportFormat returns the output format forced by a flag or implied by the
// output path.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	case cfg.TextReport:
		return report.FormatText
	case cfg.ReportFile == stdoutPath:
		return report.FormatText
	default:
		return report.FormatFromPath(cfg.ReportFile)
	}
}

// reportPath returns the file a report is written to.
// With several targets each report gets its own file named after the
// position and host of its seed.
func reportPath(base string, crawlReport *model.CrawlReport, index, total int) string {
	if total <= 1 {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	host := strings.NewReplacer(":", "_", "/", "_").Replace(crawlReport.Host)
	if host == "" {
		host = "site"
	}
	return stem + "_" + strconv.Itoa(index+1) + "_" + host + ext
}

// writeReport renders crawlReport and returns the path written, or ""
// for stdout.
func writeReport(cfg *config.Config, crawlReport *model.CrawlReport, index int, con *console) (string, error) {
	format := reportFormat(cfg)

	if cfg.ReportFile == stdoutPath {
		con.mu.Lock()
		defer con.mu.Unlock()
		w, err := report.NewWriter(format, con.stdout, getVersion())
		if err != nil {
			return "", err
		}
		_, err = w.Write(crawlReport)
		return "", err
	}

	path := reportPath(cfg.ReportFile, crawlReport, index, len(cfg.Targets))
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := report.NewWriter(format, f, getVersion())
	if err != nil {
		_ = f.Close()
		return "", err
	}
	if _, err := w.Write(crawlReport); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	return path, nil
}

// isInterrupted reports whether err stems from a cancelled context.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
