package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw records from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error)
}

// BatchProcessor turns a batch of raw records into an insert outcome.
type BatchProcessor interface {
	Process(ctx context.Context, records []domain.RawRecord) domain.InsertBatchResult
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline drives the Kafka consume loop: extract a batch, process it,
// commit offsets.
type Pipeline struct {
	extractor BatchExtractor
	processor BatchProcessor
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, p BatchProcessor, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run executes the consume loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-process-commit cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	result := p.processor.Process(ctx, batch)

	// Offsets advance whatever the outcome: a failed batch is reported, not
	// redelivered.
	for _, rec := range batch {
		p.commitOffset(ctx, rec)
	}

	if result.Error != "" {
		p.logger.Warn("batch insert failed, backing off", "error", result.Error, "backoff", *backoff)
		return p.backoffOrStop(ctx, backoff)
	}

	*backoff = initialBackoff
	return true
}

// backoffOrStop sleeps with the current backoff and advances it.
// Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the record offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, rec domain.RawRecord) {
	if rec.Commit == nil {
		return
	}
	if err := rec.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
