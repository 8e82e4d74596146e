package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "seoscan.db"

// CrawlDB stores crawl history in a single SQLite file: one row per crawl
// run plus one row per crawled page.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create the file, mode=rwc allows it.
	// busy_timeout lets concurrent seoscan processes wait for the lock.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the location of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		seed TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		page_limit INTEGER NOT NULL,
		page_count INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		severity_summary TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_host ON crawl_runs(host);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		meta_description TEXT,
		canonical TEXT,
		missing_alt_count INTEGER NOT NULL DEFAULT 0,
		has_robots INTEGER NOT NULL DEFAULT 0,
		has_sitemap INTEGER NOT NULL DEFAULT 0,
		depth INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawlReport stores report and its pages in one transaction and
// returns the id of the new crawl run. The report's summary is derived
// when missing.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	if report.Summary == nil {
		report.Summary = model.NewSummary(report)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, _ := json.Marshal(report.Summary.SeverityCounts()) //nolint:errcheck,errchkjson // map[string]int always marshals

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (host, seed, timestamp, page_limit, page_count, report_json, severity_summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.Host,
		report.Seed,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Limit,
		len(report.Pages),
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save crawl run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, title, meta_description, canonical,
		missing_alt_count, has_robots, has_sitemap, depth, seq)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pages {
		if _, err := stmt.ExecContext(ctx,
			runID,
			p.URL,
			nullString(p.Title),
			nullString(p.MetaDescription),
			nullString(p.Canonical),
			p.MissingAltCount,
			p.HasRobots,
			p.HasSitemap,
			p.Depth,
			p.Order,
		); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl run: %w", err)
	}

	return runID, nil
}

// GetLatestCrawlReport retrieves the most recent crawl report for host.
// Returns nil without error when the host was never crawled.
func (cdb *CrawlDB) GetLatestCrawlReport(ctx context.Context, host string) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_runs
	WHERE host = ?
	ORDER BY id DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, host).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetCrawlReportByID retrieves a crawl report by its database ID.
// Returns nil without error when no such run exists.
func (cdb *CrawlDB) GetCrawlReportByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_runs
	WHERE id = ?
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	return decodeReport(reportJSON)
}

// ListCrawledHosts returns every host with at least one crawl run.
func (cdb *CrawlDB) ListCrawledHosts(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT host FROM crawl_runs
	ORDER BY host
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

// CrawlRunMetadata contains summary information about a crawl run.
// This is used for displaying crawl history without loading the full report.
type CrawlRunMetadata struct {
	// ID is the unique identifier of the crawl run in the database.
	ID int64

	// Host is the crawled host.
	Host string

	// Seed is the URL the crawl started from.
	Seed string

	// Timestamp is when the crawl was started.
	Timestamp time.Time

	// PageCount is the number of page records of the run.
	PageCount int

	// SeveritySummary contains counts of findings by severity level.
	SeveritySummary map[string]int
}

// GetCrawlHistoryWithMetadata retrieves crawl run metadata for host,
// newest first.
func (cdb *CrawlDB) GetCrawlHistoryWithMetadata(ctx context.Context, host string) ([]CrawlRunMetadata, error) {
	query := `
	SELECT id, host, seed, timestamp, page_count, severity_summary
	FROM crawl_runs
	WHERE host = ?
	ORDER BY id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []CrawlRunMetadata
	for rows.Next() {
		var meta CrawlRunMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Host, &meta.Seed, &timestamp, &meta.PageCount, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.SeveritySummary); err != nil {
				meta.SeveritySummary = make(map[string]int)
			}
		} else {
			meta.SeveritySummary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetPages returns the page records of a crawl run in discovery order.
// Messages are derived again from the stored signals.
func (cdb *CrawlDB) GetPages(ctx context.Context, runID int64) ([]*model.PageReport, error) {
	query := `
	SELECT url, title, meta_description, canonical, missing_alt_count,
		has_robots, has_sitemap, depth, seq
	FROM pages
	WHERE run_id = ?
	ORDER BY seq, id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	var pages []*model.PageReport
	for rows.Next() {
		var (
			pageURL                       string
			title, description, canonical sql.NullString
			missingAlt, depth, seq        int
			presence                      model.Presence
		)
		if err := rows.Scan(&pageURL, &title, &description, &canonical, &missingAlt,
			&presence.Robots, &presence.Sitemap, &depth, &seq); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		signals := model.Signals{
			Title:           stringPtr(title),
			MetaDescription: stringPtr(description),
			Canonical:       stringPtr(canonical),
			MissingAltCount: missingAlt,
		}
		pages = append(pages, model.NewPageReport(pageURL, signals, presence, depth, seq))
	}

	return pages, rows.Err()
}

func decodeReport(reportJSON string) (*model.CrawlReport, error) {
	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// nullString keeps a missing signal as SQL NULL, distinct from "".
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return model.StringPtr(s.String)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
