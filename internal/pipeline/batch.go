package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/seoscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once by a BatchProcessor.
const DefaultConcurrency = 4

// BatchProcessor crawls several seeds concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each seed, so per-site
	// settings and probe caches never leak between crawls.
	pipelineFactory func(seed string) *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every seed and returns one report per seed, in the
// order of seeds. A failed crawl does not stop the others; its error is
// recorded in its report. The returned error is the context's error when
// the batch was cancelled. Seeds not started before cancellation get a
// report carrying that error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch crawl",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine owns one index, so no lock is needed.
	results := make([]*model.CrawlReport, len(seeds))
	err := bp.run(ctx, seeds, func(report *model.CrawlReport, index int) {
		results[index] = report
	})

	bp.logger.Info("batch crawl complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback as each
// crawl completes. The callback receives the report and the index of the
// seed; it is called from worker goroutines and must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	return bp.run(ctx, seeds, callback)
}

func (bp *BatchProcessor) run(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			report := model.NewCrawlReport(seed, 0)

			if err := ctx.Err(); err != nil {
				markCancelled(report, err)
				report.Finish()
				callback(report, i)
				return nil
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			// The error is stored in the report.
			if err := bp.pipelineFactory(seed).Execute(ctx, report); err != nil {
				bp.logger.Warn("crawl failed",
					"seed", seed,
					"error", err,
				)
			}

			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors
	return ctx.Err()
}
