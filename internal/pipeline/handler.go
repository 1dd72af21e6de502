package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/google/uuid"
)

// Greeting is the message field of every invocation response.
const Greeting = "Hello from CrateDB!"

// BatchInserter writes validated rows and reports the outcome. Failures are
// part of the returned result, never an error.
type BatchInserter interface {
	Insert(ctx context.Context, rows []domain.ClimateRow, rejections []domain.RowRejection) domain.InsertBatchResult
}

// Warmer opens the store connection ahead of the first insert. WarmUp reports
// whether this call was the process's cold start.
type Warmer interface {
	WarmUp(ctx context.Context) bool
}

// Handler runs the decode, map, and insert steps for one batch of records.
// It is safe for concurrent use when its inserter and warmer are.
type Handler struct {
	inserter    BatchInserter
	warmer      Warmer
	sourceTopic string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewHandler creates a Handler that reads records for sourceTopic from events.
func NewHandler(inserter BatchInserter, warmer Warmer, sourceTopic string, logger *slog.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		inserter:    inserter,
		warmer:      warmer,
		sourceTopic: sourceTopic,
		logger:      logger,
		metrics:     metrics,
	}
}

// Handle processes the records of an invocation event and wraps the result.
// A missing source topic key is an empty batch. The status code is always 200:
// per-row and store failures are reported inside the body.
func (h *Handler) Handle(ctx context.Context, event domain.Event) domain.Response {
	result := h.Process(ctx, event.Records[h.sourceTopic])

	body, err := json.Marshal(domain.ResponseBody{
		Message:      Greeting,
		CrateDBWrite: result,
	})
	if err != nil {
		h.logger.Error("encode invocation response", "error", err)
		return domain.Response{StatusCode: http.StatusInternalServerError, Body: `{"message":"internal error"}`}
	}
	return domain.Response{StatusCode: http.StatusOK, Body: string(body)}
}

// Process decodes records, maps the payloads to rows, and inserts the valid
// rows in a single batch.
func (h *Handler) Process(ctx context.Context, records []domain.RawRecord) domain.InsertBatchResult {
	start := time.Now()
	logger := h.logger.With("invocation_id", uuid.NewString())

	h.metrics.RecordsReceived.Add(float64(len(records)))
	h.metrics.BatchSize.Observe(float64(len(records)))

	payloads := domain.DecodePayloads(records)
	for _, p := range payloads {
		if p.Kind() == domain.PayloadRawText {
			h.metrics.RawTextPayloads.Inc()
		}
	}
	logger.Info("received batch", "records", len(records), "payloads", len(payloads))

	if h.warmer.WarmUp(ctx) {
		logger.Info("cold start complete")
	}

	rows, rejections := domain.MapPayloads(payloads)
	h.metrics.RowsRejected.Add(float64(len(rejections)))
	for _, rej := range rejections {
		logger.Warn("payload rejected", "index", rej.Index, "reason", rej.Reason, "field", rej.Field)
	}

	result := h.inserter.Insert(ctx, rows, rejections)
	h.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())

	logger.Info("batch processed",
		"ok", result.OK,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"error", result.Error,
	)
	return result
}
