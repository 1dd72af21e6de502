package cratedb

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInserter(src ConnSource) *Inserter {
	return NewInserter(src, "demo", "climate_data", discardLogger(), observability.NewMetricsForTesting())
}

func sampleRows(n int) []domain.ClimateRow {
	rows := make([]domain.ClimateRow, n)
	for i := range rows {
		rows[i] = domain.ClimateRow{
			TimestampSeconds:   1694500000,
			Longitude:          10.5 + float64(i),
			Latitude:           -3.25,
			TemperatureCelsius: 27,
			U10:                1.5,
			V10:                -0.5,
			Pressure:           101325,
		}
	}
	return rows
}

func rejection(index int) domain.RowRejection {
	return domain.RowRejection{
		Index:   index,
		Payload: domain.RawText("garbage"),
		Reason:  domain.ReasonNotObject,
	}
}

func TestInsertStatement(t *testing.T) {
	want := `INSERT INTO "demo"."climate_data" ("timestamp", geo_location, data) ` +
		`VALUES ($1, [$2, $3], {"longitude" = $4, "latitude" = $5, "temperature" = $6, "u10" = $7, "v10" = $8, "pressure" = $9})`
	assert.Equal(t, want, insertStatement("demo", "climate_data"))

	assert.Contains(t, insertStatement("", "readings"), `INSERT INTO "readings" (`)
}

func TestInsert_NoConnection(t *testing.T) {
	ins := newTestInserter(fakeSource{err: ErrNoConnection})
	rejections := []domain.RowRejection{rejection(1)}

	got := ins.Insert(context.Background(), sampleRows(2), rejections)

	assert.False(t, got.OK)
	assert.Equal(t, domain.ErrMsgNoConnection, got.Error)
	assert.Zero(t, got.Inserted)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, rejections, got.Errors)
	assert.Equal(t, 1.0, testutil.ToFloat64(ins.metrics.InsertFailures))
}

func TestInsert_AllRowsRejected(t *testing.T) {
	conn := &fakeConn{}
	ins := newTestInserter(fakeSource{conn: conn})
	rejections := []domain.RowRejection{rejection(0), rejection(1), rejection(2)}

	got := ins.Insert(context.Background(), nil, rejections)

	assert.False(t, got.OK)
	assert.Empty(t, got.Error)
	assert.Equal(t, 3, got.Skipped)
	assert.Equal(t, rejections, got.Errors)
	assert.Nil(t, conn.batch, "no statement should be sent")
}

func TestInsert_Success(t *testing.T) {
	conn := &fakeConn{results: &fakeBatchResults{counts: []int64{1, 1}, failAt: -1}}
	ins := newTestInserter(fakeSource{conn: conn})
	rows := sampleRows(2)
	rejections := []domain.RowRejection{rejection(2)}

	got := ins.Insert(context.Background(), rows, rejections)

	require.True(t, got.OK)
	assert.Equal(t, 2, got.Inserted)
	require.NotNil(t, got.ActualInserted)
	assert.Equal(t, int64(2), *got.ActualInserted)
	require.NotNil(t, got.AllInserted)
	assert.True(t, *got.AllInserted)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, rejections, got.Errors)
	assert.Equal(t, 2.0, testutil.ToFloat64(ins.metrics.RowsInserted))

	require.NotNil(t, conn.batch)
	require.Len(t, conn.batch.QueuedQueries, 2)
	for i, q := range conn.batch.QueuedQueries {
		assert.Equal(t, ins.stmt, q.SQL)
		require.Len(t, q.Arguments, 9)
		assert.Equal(t, rows[i].Values(), q.Arguments)
		assert.Equal(t, q.Arguments[1], q.Arguments[3], "longitude is bound twice")
		assert.Equal(t, q.Arguments[2], q.Arguments[4], "latitude is bound twice")
	}
}

func TestInsert_PartialRowCount(t *testing.T) {
	conn := &fakeConn{results: &fakeBatchResults{counts: []int64{1, 0, 1}, failAt: -1}}
	ins := newTestInserter(fakeSource{conn: conn})

	got := ins.Insert(context.Background(), sampleRows(3), nil)

	require.True(t, got.OK)
	assert.Equal(t, 3, got.Inserted)
	assert.Equal(t, int64(2), *got.ActualInserted)
	assert.False(t, *got.AllInserted)
	assert.Equal(t, []domain.RowRejection{}, got.Errors)
}

func TestInsert_ExecError(t *testing.T) {
	conn := &fakeConn{results: &fakeBatchResults{
		counts:  []int64{1, 1},
		failAt:  1,
		execErr: errors.New("SQLParseException: column unknown"),
	}}
	ins := newTestInserter(fakeSource{conn: conn})
	rejections := []domain.RowRejection{rejection(0)}

	got := ins.Insert(context.Background(), sampleRows(2), rejections)

	assert.False(t, got.OK)
	assert.Equal(t, "SQLParseException: column unknown", got.Error)
	assert.Zero(t, got.Inserted)
	assert.Nil(t, got.ActualInserted)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, rejections, got.Errors)
	assert.Equal(t, 1.0, testutil.ToFloat64(ins.metrics.InsertFailures))
}

func TestInsert_CloseError(t *testing.T) {
	conn := &fakeConn{results: &fakeBatchResults{
		counts:   []int64{1},
		failAt:   -1,
		closeErr: errors.New("connection reset"),
	}}
	ins := newTestInserter(fakeSource{conn: conn})

	got := ins.Insert(context.Background(), sampleRows(1), nil)

	assert.False(t, got.OK)
	assert.Equal(t, "connection reset", got.Error)
}

func TestInsert_SkippedMatchesRejectedPayloads(t *testing.T) {
	payloads := []domain.Payload{
		domain.Structured(map[string]any{
			"timestamp": "1694500000000000000", "temperature": "300.15", "u10": "1", "v10": "2",
			"pressure": "101325", "latitude": "10", "longitude": "20",
		}),
		domain.RawText("not json"),
		domain.Structured(map[string]any{"timestamp": "x"}),
		domain.Structured(map[string]any{
			"timestamp": "1694500000000000000", "temperature": "280", "u10": "0", "v10": "0",
			"pressure": "99000", "latitude": "0", "longitude": "0",
		}),
	}
	rows, rejections := domain.MapPayloads(payloads)
	conn := &fakeConn{results: &fakeBatchResults{counts: []int64{1, 1}, failAt: -1}}
	ins := newTestInserter(fakeSource{conn: conn})

	got := ins.Insert(context.Background(), rows, rejections)

	require.True(t, got.OK)
	assert.Equal(t, 2, got.Inserted)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, len(payloads), got.Inserted+got.Skipped)
	require.Len(t, got.Errors, 2)
	assert.Equal(t, 1, got.Errors[0].Index)
	assert.Equal(t, 2, got.Errors[1].Index)
}
