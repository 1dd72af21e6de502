package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// timestampTypeCreate mirrors the timestampType the managed event source
// reports for producer-stamped messages.
const timestampTypeCreate = "CREATE_TIME"

// Reader consumes messages from the source topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer group reader for the configured source topic.
func NewReader(cfg *config.Config, dialer *kafkago.Dialer, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.SourceTopic,
		GroupID:  cfg.KafkaGroupID,
		Dialer:   dialer,
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch blocks for the first message, then collects more until the
// batch is full or the flush interval elapses. Offsets are not committed;
// each record carries a Commit callback instead.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.RawRecord, 0, batchSize)
	batch = append(batch, r.toRecord(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				r.logger.Warn("fetch message failed, flushing partial batch", "error", err, "batch_size", len(batch))
			}
			break
		}
		batch = append(batch, r.toRecord(msg))
	}

	return batch, nil
}

func (r *Reader) toRecord(msg kafkago.Message) domain.RawRecord {
	rec := mapMessageToRawRecord(msg)
	rec.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return rec
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawRecord renders a message the way the managed event source
// does: key and value base64-encoded, timestamp in epoch milliseconds.
func mapMessageToRawRecord(msg kafkago.Message) domain.RawRecord {
	rec := domain.RawRecord{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time.UnixMilli(),
		TimestampType: timestampTypeCreate,
	}
	if msg.Key != nil {
		rec.Key = *domain.EncodeValue(msg.Key)
	}
	if msg.Value != nil {
		rec.Value = domain.EncodeValue(msg.Value)
	}
	return rec
}
