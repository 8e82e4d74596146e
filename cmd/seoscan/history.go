package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/database"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/report"
	"github.com/spf13/cobra"
)

const noFindingsMessage = "No findings"

// NewHistoryCmd creates the history command.
// It reads crawls stored by the crawl command and compares them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "Show and compare earlier crawls of a host",
		Long: `History reads crawl reports stored in the local database.

Without flags it prints the latest report of the host. With --compare it
shows what changed between two crawls:
- Pages that appeared or disappeared
- Titles, descriptions and canonical links that changed
- Findings that are new or resolved

The host is given without scheme, e.g. "example.com" or "localhost:8080".
A full URL is accepted too.

Examples:
  # Show the latest crawl of a host
  seoscan history example.com

  # List all crawls of a host
  seoscan history --list example.com

  # List the page signals of a crawl
  seoscan history --pages --id 5 example.com

  # Show a specific crawl as Markdown
  seoscan history --id 5 --markdown example.com

  # Compare the latest two crawls
  seoscan history --compare example.com

  # Compare the latest crawl with crawl 3
  seoscan history --compare --id 3 example.com

  # Compare with the first crawl since a date, as JSON
  seoscan history --compare --since 2025-01-01 --json example.com

  # List all hosts in the database
  seoscan history --list-hosts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List crawl history of the host")
	cmd.Flags().BoolP("list-hosts", "L", false,
		"List all crawled hosts in the database")
	cmd.Flags().BoolP("pages", "p", false,
		"List the page signals of the latest crawl, or of --id")

	cmd.Flags().Int64P("id", "i", 0,
		"Crawl ID to show, or to compare with when --compare is set (see --list)")
	cmd.Flags().Bool("compare", false,
		"Compare the latest crawl with an earlier one")
	cmd.Flags().StringP("since", "s", "",
		"With --compare, use the first crawl on or after this date (YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	host      string
	list      bool
	listHosts bool
	pages     bool
	id        int64
	compare   bool
	since     string
	format    report.Format
	dbDir     string
}

// parseHistoryOptions reads and checks the history flags.
// It runs before the database is opened so bad input never touches it.
func parseHistoryOptions(cmd *cobra.Command, args []string) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{format: report.FormatText}

	var err error
	if opts.listHosts, err = flags.GetBool("list-hosts"); err != nil {
		return nil, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.pages, err = flags.GetBool("pages"); err != nil {
		return nil, err
	}
	if opts.id, err = flags.GetInt64("id"); err != nil {
		return nil, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return nil, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return nil, err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}
	switch {
	case jsonOutput && markdownOutput:
		return nil, config.ErrConflictingReportFormats
	case jsonOutput:
		opts.format = report.FormatJSON
	case markdownOutput:
		opts.format = report.FormatMarkdown
	}

	if opts.since != "" && !opts.compare {
		return nil, errors.New("--since requires --compare")
	}
	if opts.id < 0 {
		return nil, fmt.Errorf("invalid crawl ID %d", opts.id)
	}

	if !opts.listHosts {
		if len(args) == 0 {
			return nil, errors.New("host is required (use --list-hosts to see crawled hosts)")
		}
		opts.host = normalizeHost(args[0])
		if opts.host == "" {
			return nil, fmt.Errorf("invalid host %q", args[0])
		}
	}
	return opts, nil
}

// normalizeHost accepts a bare host or a URL and returns the lowercased host
// as stored in the database.
func normalizeHost(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return model.HostOf(arg)
	}
	return strings.ToLower(strings.TrimSuffix(arg, "/"))
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listHosts:
		return listCrawledHosts(ctx, out, db)
	case opts.list:
		return listCrawlHistory(ctx, out, db, opts.host)
	case opts.pages:
		return listCrawlPages(ctx, out, db, opts)
	case opts.compare:
		return runComparison(ctx, out, db, opts)
	default:
		return showCrawl(ctx, out, db, opts)
	}
}

// listCrawledHosts lists all hosts that have crawl records in the database.
func listCrawledHosts(ctx context.Context, out io.Writer, db *database.CrawlDB) error {
	hosts, err := db.ListCrawledHosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Fprintln(out, "No crawled hosts found in the database.")
		fmt.Fprintln(out, "\nUse 'seoscan crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  • %s\n", host)
	}
	fmt.Fprintln(out, "\nUse 'seoscan history --list <host>' to see the crawls of a host.")
	return nil
}

// listCrawlHistory lists all crawl records of host.
func listCrawlHistory(ctx context.Context, out io.Writer, db *database.CrawlDB, host string) error {
	runs, err := db.GetCrawlHistoryWithMetadata(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", host)
		fmt.Fprintln(out, "\nUse 'seoscan crawl' to crawl this host.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d crawls):\n\n", host, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %s\n", "ID", "Date", "Pages", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %s\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.PageCount,
			formatSeveritySummary(run.SeveritySummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'seoscan history --compare <host>' to compare the latest two crawls.")
	fmt.Fprintln(out, "Use 'seoscan history --compare --id <id> <host>' to compare with a specific crawl.")
	return nil
}

// listCrawlPages prints one line per stored page of a crawl.
func listCrawlPages(ctx context.Context, out io.Writer, db *database.CrawlDB, opts *historyOptions) error {
	runID := opts.id
	if runID > 0 {
		if _, err := loadCrawl(ctx, db, opts.host, runID); err != nil {
			return err
		}
	} else {
		runs, err := db.GetCrawlHistoryWithMetadata(ctx, opts.host)
		if err != nil {
			return fmt.Errorf("failed to get crawl history: %w", err)
		}
		if len(runs) == 0 {
			return fmt.Errorf("no crawl history found for %s", opts.host)
		}
		runID = runs[0].ID
	}

	pages, err := db.GetPages(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}

	fmt.Fprintf(out, "Pages of crawl %d (%d):\n\n", runID, len(pages))
	fmt.Fprintf(out, "  %-4s  %-5s  %-11s  %-40s  %s\n", "#", "Depth", "Missing Alt", "URL", "Title")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, page := range pages {
		title := "(none)"
		if page.HasTitle() {
			title = page.TitleText()
		}
		fmt.Fprintf(out, "  %-4d  %-5d  %-11d  %-40s  %s\n",
			page.Order+1, page.Depth, page.MissingAltCount, page.URL, title)
	}
	return nil
}

// formatSeveritySummary formats severity counts into a short string.
func formatSeveritySummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, s := range []struct {
		key    string
		letter string
	}{
		{"critical", "C"},
		{"high", "H"},
		{"medium", "M"},
		{"low", "L"},
		{"info", "I"},
	} {
		if v := summary[s.key]; v > 0 {
			parts = append(parts, s.letter+":"+strconv.Itoa(v))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// loadCrawl fetches crawl id and checks that it belongs to host.
func loadCrawl(ctx context.Context, db *database.CrawlDB, host string, id int64) (*model.CrawlReport, error) {
	crawl, err := db.GetCrawlReportByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl with ID %d: %w", id, err)
	}
	if crawl == nil {
		return nil, fmt.Errorf("crawl with ID %d not found", id)
	}
	if crawl.Host != host {
		return nil, fmt.Errorf("crawl ID %d belongs to %s, not %s", id, crawl.Host, host)
	}
	return crawl, nil
}

// showCrawl renders one stored crawl with the report writers.
func showCrawl(ctx context.Context, out io.Writer, db *database.CrawlDB, opts *historyOptions) error {
	var crawl *model.CrawlReport
	if opts.id > 0 {
		var err error
		if crawl, err = loadCrawl(ctx, db, opts.host, opts.id); err != nil {
			return err
		}
	} else {
		var err error
		crawl, err = db.GetLatestCrawlReport(ctx, opts.host)
		if err != nil {
			return fmt.Errorf("failed to get latest crawl: %w", err)
		}
		if crawl == nil {
			return fmt.Errorf("no crawl history found for %s", opts.host)
		}
	}

	w, err := report.NewWriter(opts.format, out, getVersion())
	if err != nil {
		return err
	}
	_, err = w.Write(crawl)
	return err
}

// runComparison compares the latest crawl of a host with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.CrawlDB, opts *historyOptions) error {
	runs, err := db.GetCrawlHistoryWithMetadata(ctx, opts.host)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no crawl history found for %s", opts.host)
	}

	// runs are ordered newest first.
	latest := runs[0]
	var previousID int64
	switch {
	case opts.id > 0:
		if opts.id == latest.ID {
			return fmt.Errorf("crawl %d is the latest crawl; pick an earlier one", opts.id)
		}
		previousID = opts.id
	case opts.since != "":
		sinceDate, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].Timestamp.Before(sinceDate) {
				previousID = runs[i].ID
				break
			}
		}
		if previousID == 0 {
			return fmt.Errorf("no crawls found since %s", opts.since)
		}
		if previousID == latest.ID {
			return fmt.Errorf("only one crawl found since %s; at least 2 crawls are required for comparison", opts.since)
		}
	default:
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(runs))
		}
		previousID = runs[1].ID
	}

	current, err := loadCrawl(ctx, db, opts.host, latest.ID)
	if err != nil {
		return err
	}
	previous, err := loadCrawl(ctx, db, opts.host, previousID)
	if err != nil {
		return err
	}

	diff := model.CompareReports(previous, current)

	switch opts.format {
	case report.FormatJSON:
		return outputComparisonJSON(out, diff)
	case report.FormatMarkdown:
		return outputComparisonMarkdown(out, diff)
	default:
		return outputComparisonText(out, diff)
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, diff *model.ReportDiff) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(diff)
}

// severityRows returns the per-severity rows shared by the text and
// Markdown comparison output.
func severityRows(diff *model.ReportDiff) [][]string {
	row := func(name string, prev, cur, delta int) []string {
		return []string{name, strconv.Itoa(prev), strconv.Itoa(cur), formatDelta(delta)}
	}
	p, c, d := diff.Previous, diff.Current, diff.Delta
	return [][]string{
		row("Pages", p.PagesCrawled, c.PagesCrawled, c.PagesCrawled-p.PagesCrawled),
		row("Critical", p.CriticalCount, c.CriticalCount, d.CriticalDelta),
		row("High", p.HighCount, c.HighCount, d.HighDelta),
		row("Medium", p.MediumCount, c.MediumCount, d.MediumDelta),
		row("Low", p.LowCount, c.LowCount, d.LowDelta),
		row("Info", p.InfoCount, c.InfoCount, d.InfoDelta),
		row("Total", p.TotalFindings, c.TotalFindings, c.TotalFindings-p.TotalFindings),
	}
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, diff *model.ReportDiff) error {
	md := markdown.NewMarkdown(out)

	md.H1("Crawl Comparison: " + diff.Host)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**SEO Status:** " + formatDirection(diff.Delta.Direction))
	md.PlainText("")

	rows := [][]string{{
		"Date",
		diff.Previous.DateCrawled.Local().Format("2006-01-02 15:04"),
		diff.Current.DateCrawled.Local().Format("2006-01-02 15:04"),
		"-",
	}}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   append(rows, severityRows(diff)...),
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("Nothing changed between the two crawls.")
		return md.Build()
	}

	if len(diff.AddedPages) > 0 {
		md.H2("Added Pages (" + strconv.Itoa(len(diff.AddedPages)) + ")")
		md.PlainText("")
		md.BulletList(diff.AddedPages...)
		md.PlainText("")
	}
	if len(diff.RemovedPages) > 0 {
		md.H2("Removed Pages (" + strconv.Itoa(len(diff.RemovedPages)) + ")")
		md.PlainText("")
		md.BulletList(diff.RemovedPages...)
		md.PlainText("")
	}
	if len(diff.ChangedPages) > 0 {
		md.H2("Changed Signals (" + strconv.Itoa(len(diff.ChangedPages)) + ")")
		md.PlainText("")
		changeRows := make([][]string, 0, len(diff.ChangedPages))
		for _, c := range diff.ChangedPages {
			changeRows = append(changeRows, []string{"`" + c.URL + "`", c.Field, c.Old, c.New})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Signal", "Previous", "Current"},
			Rows:   changeRows,
		})
		md.PlainText("")
	}
	if len(diff.NewFindings) > 0 {
		md.H2("New Findings (" + strconv.Itoa(len(diff.NewFindings)) + ")")
		md.PlainText("")
		items := make([]string, 0, len(diff.NewFindings))
		for _, f := range diff.NewFindings {
			items = append(items, "**["+f.SeverityText+"]** "+f.Title+": `"+f.Location+"`")
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if len(diff.ResolvedFindings) > 0 {
		md.H2("Resolved Findings (" + strconv.Itoa(len(diff.ResolvedFindings)) + ")")
		md.PlainText("")
		items := make([]string, 0, len(diff.ResolvedFindings))
		for _, f := range diff.ResolvedFindings {
			items = append(items, "~~**["+f.SeverityText+"]** "+f.Title+": `"+f.Location+"`~~")
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if diff.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", diff.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, diff *model.ReportDiff) error {
	fmt.Fprintf(out, "Crawl Comparison: %s\n", diff.Host)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nSEO Status: %s\n", formatDirection(diff.Delta.Direction))
	fmt.Fprintf(out, "\nPrevious crawl: %s\n", diff.Previous.DateCrawled.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current crawl:  %s\n", diff.Current.DateCrawled.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	for _, row := range severityRows(diff) {
		fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if len(diff.AddedPages) > 0 {
		fmt.Fprintf(out, "\nAdded Pages (%d):\n", len(diff.AddedPages))
		for _, u := range diff.AddedPages {
			fmt.Fprintf(out, "  [+] %s\n", u)
		}
	}
	if len(diff.RemovedPages) > 0 {
		fmt.Fprintf(out, "\nRemoved Pages (%d):\n", len(diff.RemovedPages))
		for _, u := range diff.RemovedPages {
			fmt.Fprintf(out, "  [-] %s\n", u)
		}
	}
	if len(diff.ChangedPages) > 0 {
		fmt.Fprintf(out, "\nChanged Signals (%d):\n", len(diff.ChangedPages))
		for _, c := range diff.ChangedPages {
			fmt.Fprintf(out, "  [~] %s %s: %s -> %s\n", c.URL, c.Field, c.Old, c.New)
		}
	}
	if len(diff.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(diff.NewFindings))
		for _, f := range diff.NewFindings {
			fmt.Fprintf(out, "  [+] [%s] %s: %s\n", f.SeverityText, f.Title, f.Location)
		}
	}
	if len(diff.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(diff.ResolvedFindings))
		for _, f := range diff.ResolvedFindings {
			fmt.Fprintf(out, "  [-] [%s] %s: %s\n", f.SeverityText, f.Title, f.Location)
		}
	}
	if diff.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", diff.UnchangedCount)
	}
	if !diff.HasChanges() {
		fmt.Fprintln(out, "\nNothing changed between the two crawls.")
	}

	return nil
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case model.DirectionImproved:
		return "IMPROVED (fewer issues)"
	case model.DirectionWorsened:
		return "WORSENED (more issues)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
