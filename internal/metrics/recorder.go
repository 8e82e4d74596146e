package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seoscan"

// Recorder holds the crawler metrics.
// All methods are safe on a nil *Recorder and then do nothing, so components
// can take an optional recorder without checking for it.
type Recorder struct {
	registry *prometheus.Registry

	pagesCrawled  prometheus.Counter
	fetchFailures *prometheus.CounterVec
	probeResults  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	crawlsTotal   *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pagesCrawled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_crawled_total",
			Help:      "Total number of pages fetched and analyzed.",
		}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of page fetches that failed.",
		}, []string{"reason"}), // status, not_text, read, transport
		probeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Results of robots.txt and sitemap.xml probes.",
		}, []string{"path", "found"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		crawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Total number of crawls by outcome.",
		}, []string{"status"}), // success, failure
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// PageCrawled counts one analyzed page.
func (r *Recorder) PageCrawled() {
	if r == nil {
		return
	}
	r.pagesCrawled.Inc()
}

// FetchFailed counts one failed fetch.
func (r *Recorder) FetchFailed(reason string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(reason).Inc()
}

// ObserveFetch records how long a fetch took.
func (r *Recorder) ObserveFetch(d time.Duration) {
	if r == nil {
		return
	}
	r.fetchDuration.Observe(d.Seconds())
}

// ProbeResult counts one probe outcome for a well-known path.
func (r *Recorder) ProbeResult(path string, found bool) {
	if r == nil {
		return
	}
	r.probeResults.WithLabelValues(path, strconv.FormatBool(found)).Inc()
}

// CrawlFinished counts one crawl by outcome.
func (r *Recorder) CrawlFinished(err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.crawlsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
