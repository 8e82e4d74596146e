package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/seoscan/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithConcurrency(2))
		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns one report per seed in order", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		bp := NewBatchProcessor(func(seed string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "record",
				doFunc: func(_ context.Context, report *model.CrawlReport) error {
					processed.Add(1)
					report.AddPage(model.NewPageReport(seed, model.Signals{}, model.Presence{}, 0, 0))
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		seeds := []string{"http://a.example/", "http://b.example/", "http://c.example/"}
		reports, err := bp.ProcessBatch(context.Background(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 crawls, got %d", processed.Load())
		}
		for i, seed := range seeds {
			if reports[i] == nil || reports[i].Seed != seed {
				t.Errorf("report %d: expected seed %q, got %+v", i, seed, reports[i])
				continue
			}
			if reports[i].PageCount() != 1 || reports[i].Pages[0].URL != seed {
				t.Errorf("report %d: unexpected pages %+v", i, reports[i].Pages)
			}
		}
	})

	t.Run("failed crawl does not stop the batch", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(seed string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "maybe-fail",
				doFunc: func(context.Context, *model.CrawlReport) error {
					if seed == "http://bad.example/" {
						return errors.New("boom")
					}
					return nil
				},
			})
			return p
		})

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://good.example/", "http://bad.example/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[0].ErrorMessage != "" {
			t.Errorf("expected no error on good seed, got %q", reports[0].ErrorMessage)
		}
		if reports[1].ErrorMessage != "boom" {
			t.Errorf("expected error on bad seed, got %q", reports[1].ErrorMessage)
		}
	})

	t.Run("cancelled batch reports the context error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		reports, err := bp.ProcessBatch(ctx, []string{"http://a.example/", "http://b.example/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for i, r := range reports {
			if r == nil || r.ErrorMessage == "" {
				t.Errorf("report %d: expected cancellation recorded, got %+v", i, r)
			}
		}
	})
}

// TestBatchProcessorWithCallback tests streaming results.
func TestBatchProcessorWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithConcurrency(3))

	var mu sync.Mutex
	got := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(),
		[]string{"http://a.example/", "http://b.example/", "http://c.example/"},
		func(report *model.CrawlReport, index int) {
			mu.Lock()
			defer mu.Unlock()
			got[index] = report.Seed
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[1] != "http://b.example/" {
		t.Errorf("unexpected callbacks %v", got)
	}
}
