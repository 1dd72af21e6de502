package cratedb

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/jackc/pgx/v5"
)

// ConnSource hands out the shared CrateDB handle.
type ConnSource interface {
	Conn(ctx context.Context) (Conn, error)
}

// Inserter writes validated rows to CrateDB in one batch.
// It implements pipeline.BatchInserter.
type Inserter struct {
	conns   ConnSource
	stmt    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInserter creates an Inserter targeting schema.table.
func NewInserter(conns ConnSource, schema, table string, logger *slog.Logger, metrics *observability.Metrics) *Inserter {
	return &Inserter{
		conns:   conns,
		stmt:    insertStatement(schema, table),
		logger:  logger,
		metrics: metrics,
	}
}

// insertStatement binds nine values per row; see domain.ClimateRow.Values.
// "timestamp" is quoted because it is a reserved word.
func insertStatement(schema, table string) string {
	target := pgx.Identifier{table}
	if schema != "" {
		target = pgx.Identifier{schema, table}
	}
	return `INSERT INTO ` + target.Sanitize() + ` ("timestamp", geo_location, data) ` +
		`VALUES ($1, [$2, $3], {"longitude" = $4, "latitude" = $5, "temperature" = $6, "u10" = $7, "v10" = $8, "pressure" = $9})`
}

// Insert writes rows and folds the outcome together with the rejections
// collected upstream. It never returns an error: every failure is reported
// in the result.
func (i *Inserter) Insert(ctx context.Context, rows []domain.ClimateRow, rejections []domain.RowRejection) domain.InsertBatchResult {
	conn, err := i.conns.Conn(ctx)
	if err != nil {
		i.metrics.InsertFailures.Inc()
		return domain.NoConnectionResult(rejections)
	}

	if len(rows) == 0 {
		return domain.NoRowsResult(rejections)
	}

	actual, err := i.execBatch(ctx, conn, rows)
	if err != nil {
		i.metrics.InsertFailures.Inc()
		i.logger.Error("cratedb bulk insert failed", "error", err, "rows", len(rows))
		return domain.FailedResult(err.Error(), rejections)
	}

	i.metrics.RowsInserted.Add(float64(actual))
	if actual != int64(len(rows)) {
		i.logger.Warn("cratedb inserted fewer rows than sent", "sent", len(rows), "inserted", actual)
	}
	return domain.InsertedResult(len(rows), actual, rejections)
}

// execBatch queues one statement per row and sums the per-row counts.
func (i *Inserter) execBatch(ctx context.Context, conn Conn, rows []domain.ClimateRow) (actual int64, err error) {
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(i.stmt, row.Values()...)
	}

	br := conn.SendBatch(ctx, b)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for range rows {
		tag, execErr := br.Exec()
		if execErr != nil {
			return 0, execErr
		}
		actual += tag.RowsAffected()
	}
	return actual, nil
}
