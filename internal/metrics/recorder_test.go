package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecorder tests that each method updates its metric.
func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("counts pages and failures", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.PageCrawled()
		r.PageCrawled()
		r.FetchFailed("status")

		if got := testutil.ToFloat64(r.pagesCrawled); got != 2 {
			t.Errorf("expected 2 pages, got %v", got)
		}
		if got := testutil.ToFloat64(r.fetchFailures.WithLabelValues("status")); got != 1 {
			t.Errorf("expected 1 failure, got %v", got)
		}
	})

	t.Run("labels probe results", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.ProbeResult("robots.txt", true)
		r.ProbeResult("sitemap.xml", false)
		r.ProbeResult("sitemap.xml", false)

		if got := testutil.ToFloat64(r.probeResults.WithLabelValues("robots.txt", "true")); got != 1 {
			t.Errorf("expected 1 robots hit, got %v", got)
		}
		if got := testutil.ToFloat64(r.probeResults.WithLabelValues("sitemap.xml", "false")); got != 2 {
			t.Errorf("expected 2 sitemap misses, got %v", got)
		}
	})

	t.Run("counts crawl outcomes", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.CrawlFinished(nil)
		r.CrawlFinished(errors.New("boom"))

		if got := testutil.ToFloat64(r.crawlsTotal.WithLabelValues("success")); got != 1 {
			t.Errorf("expected 1 success, got %v", got)
		}
		if got := testutil.ToFloat64(r.crawlsTotal.WithLabelValues("failure")); got != 1 {
			t.Errorf("expected 1 failure, got %v", got)
		}
	})

	t.Run("nil recorder is a no-op", func(t *testing.T) {
		t.Parallel()

		var r *Recorder
		r.PageCrawled()
		r.FetchFailed("status")
		r.ObserveFetch(time.Second)
		r.ProbeResult("robots.txt", true)
		r.CrawlFinished(nil)
		if r.Registry() != nil {
			t.Error("expected nil registry")
		}
		if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestWriteTextfile tests the textfile exposition.
func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.PageCrawled()
	r.ObserveFetch(150 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "seoscan.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, name := range []string{"seoscan_pages_crawled_total 1", "seoscan_fetch_duration_seconds_count 1"} {
		if !strings.Contains(content, name) {
			t.Errorf("expected %q in output:\n%s", name, content)
		}
	}
}
