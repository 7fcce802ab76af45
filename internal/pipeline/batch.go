package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of targets loaded at once.
const DefaultConcurrency = 4

// BatchProcessor loads many targets concurrently and scans them in order.
type BatchProcessor struct {
	// load and scan create a fresh pipeline per job.
	load func() *Pipeline
	scan func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency bounds the number of concurrent loads.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor from pipeline factories.
func NewBatchProcessor(load, scan func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		load:        load,
		scan:        scan,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.New(slog.DiscardHandler)
	}
	return bp
}

// ProcessBatch runs every target and returns one Job per target, in input
// order. A failing target does not stop the others; its error is on its
// Job. The returned error is non-nil only when ctx ends the batch.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*Job, error) {
	start := time.Now()
	bp.logger.Info("starting batch", "targets", len(targets), "concurrency", bp.concurrency)

	jobs := make([]*Job, len(targets))
	for i, target := range targets {
		jobs[i] = NewJob(target)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				job.Err = err
				return err
			}
			// Step errors stay on the job so other targets keep loading.
			_ = bp.load().Execute(gctx, job) //nolint:errcheck
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return jobs, err
	}

	for _, job := range jobs {
		if job.Failed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			job.Err = err
			return jobs, err
		}
		_ = bp.scan().Execute(ctx, job) //nolint:errcheck
	}

	bp.logger.Info("batch complete", "targets", len(targets), "elapsed", time.Since(start))
	return jobs, nil
}
