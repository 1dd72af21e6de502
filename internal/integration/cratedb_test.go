//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/adapter/cratedb"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDoc(t *testing.T, doc map[string]any) domain.RawRecord {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return domain.RawRecord{Topic: "climate-data", Value: domain.EncodeValue(data)}
}

func sampleDoc(lat, lon float64) map[string]any {
	return map[string]any{
		"timestamp":   int64(1694500000000000000),
		"temperature": 300.15,
		"u10":         1.5,
		"v10":         -2.25,
		"pressure":    101325,
		"latitude":    lat,
		"longitude":   lon,
	}
}

// TestHandler_CrateDB runs the invocation path against a real CrateDB.
func TestHandler_CrateDB(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	cfg := startCrateDB(ctx, t)
	db := openDB(ctx, t, cratedb.DSN(cfg))
	createTable(ctx, t, db)

	metrics := observability.NewMetricsForTesting()
	store := cratedb.NewManager(cfg, discardLogger(), metrics)
	t.Cleanup(store.Close)

	inserter := cratedb.NewInserter(store, cfg.CrateDBSchema, cfg.CrateDBTable, discardLogger(), metrics)
	handler := pipeline.NewHandler(inserter, store, cfg.SourceTopic, discardLogger(), metrics)

	bad := sampleDoc(0, 0)
	bad["u10"] = "calm"

	resp := handler.Handle(ctx, domain.Event{Records: map[string][]domain.RawRecord{
		"climate-data": {
			encodeDoc(t, sampleDoc(48.1, 11.6)),
			encodeDoc(t, bad),
			encodeDoc(t, sampleDoc(52.5, 13.4)),
		},
	}})
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		CrateDBWrite struct {
			OK             bool  `json:"ok"`
			Inserted       int   `json:"inserted"`
			ActualInserted int64 `json:"actual_inserted"`
			AllInserted    bool  `json:"all_inserted"`
			Skipped        int   `json:"skipped"`
		} `json:"cratedb_write"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.True(t, body.CrateDBWrite.OK)
	assert.Equal(t, 2, body.CrateDBWrite.Inserted)
	assert.Equal(t, int64(2), body.CrateDBWrite.ActualInserted)
	assert.True(t, body.CrateDBWrite.AllInserted)
	assert.Equal(t, 1, body.CrateDBWrite.Skipped)

	assert.Equal(t, int64(2), countRows(ctx, t, db))

	var ts, temp, lon, dataLon float64
	require.NoError(t, db.QueryRow(ctx,
		`SELECT "timestamp", data['temperature'], longitude(geo_location), data['longitude']
		 FROM `+testSchema+`.`+testTable+` WHERE data['latitude'] = 48.1`,
	).Scan(&ts, &temp, &lon, &dataLon))
	assert.Equal(t, 1694500000.0, ts)
	assert.Equal(t, 27.0, temp)
	assert.InDelta(t, 11.6, lon, 1e-6)
	assert.Equal(t, 11.6, dataLon)
}

// TestManager_UnreachableStore checks that a missing store yields the
// no-connection result and that nothing is cached.
func TestManager_UnreachableStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := &config.Config{
		CrateDBHost:     "127.0.0.1",
		CrateDBPort:     1,
		CrateDBUser:     "crate",
		CrateDBDatabase: "doc",
		CrateDBSchema:   testSchema,
		CrateDBTable:    testTable,
		CrateDBSSLMode:  "disable",
		CrateDBMaxConns: 1,
	}
	metrics := observability.NewMetricsForTesting()
	store := cratedb.NewManager(cfg, discardLogger(), metrics)
	inserter := cratedb.NewInserter(store, cfg.CrateDBSchema, cfg.CrateDBTable, discardLogger(), metrics)

	rows, rejections := domain.MapPayloads([]domain.Payload{domain.Structured(map[string]any{})})
	result := inserter.Insert(ctx, rows, rejections)

	assert.False(t, result.OK)
	assert.Equal(t, domain.ErrMsgNoConnection, result.Error)
	assert.Equal(t, 1, result.Skipped)
	require.Error(t, store.CheckReadiness(ctx))
}
