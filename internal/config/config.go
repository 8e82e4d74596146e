package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a single HTTP request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages is the number of pages crawled per seed when -l is not given.
	DefaultMaxPages = 5

	// DefaultBatchSize is the number of seeds crawled at the same time.
	DefaultBatchSize = 4

	// DefaultWorkers keeps a single crawl sequential and depth-first.
	DefaultWorkers = 1

	// DefaultHostMatch follows links whose host contains the page host.
	DefaultHostMatch = "contains"

	// DefaultOutput is the report written when -o is not given.
	DefaultOutput = "seo_report.pdf"

	// AppName is the application name used for XDG directory paths.
	AppName = "seoscan"

	// DefaultUserAgent identifies SEOScan in HTTP requests.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/nao1215/seoscan)"

	// DefaultMaxBodySize caps how much of a response body is read (5 MiB).
	DefaultMaxBodySize int64 = 5 * 1024 * 1024
)

// hostMatchModes lists the accepted --host-match values.
var hostMatchModes = []string{"contains", "exact", "domain"}

// Config holds all options of a crawl run.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Targets are the seed URLs to crawl.
	Targets []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxPages is the page limit per seed.
	MaxPages int

	// Workers is the number of concurrent fetches within one crawl.
	Workers int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// HostMatch selects how link hosts are compared with the page host.
	HostMatch string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit path to the site configuration file.
	// If empty, .seoscan is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the per-host settings loaded from the config file.
	SiteConfigs *File

	// JSONReport forces JSON output regardless of the -o extension.
	JSONReport bool

	// MarkdownReport forces Markdown output regardless of the -o extension.
	MarkdownReport bool

	// TextReport forces plain text output regardless of the -o extension.
	TextReport bool

	// ReportFile is the output path. "-" writes to stdout.
	ReportFile string

	// DBDir is the directory holding the crawl history database.
	DBDir string

	// SaveToDB stores every crawl report in the history database.
	SaveToDB bool

	// MetricsFile, when set, receives a Prometheus textfile exposition.
	MetricsFile string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize caps the response body read per page.
	MaxBodySize int64
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		MaxPages:    DefaultMaxPages,
		Workers:     DefaultWorkers,
		BatchSize:   DefaultBatchSize,
		HostMatch:   DefaultHostMatch,
		ReportFile:  DefaultOutput,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for SEOScan.
// The crawl history database lives here.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for SEOScan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for SEOScan.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if !validHostMatch(c.HostMatch) {
		return ErrInvalidHostMatch
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.TextReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}
	return nil
}

// SiteConfigFor returns the merged site configuration for host.
// Without a loaded config file the zero SiteConfig is returned.
func (c *Config) SiteConfigFor(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

func validHostMatch(mode string) bool {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return true
	}
	for _, m := range hostMatchModes {
		if m == mode {
			return true
		}
	}
	return false
}
