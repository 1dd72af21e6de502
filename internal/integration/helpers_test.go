//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcKafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testSchema = "demo"
	testTable  = "climate_data"
)

// startKafka spins up a Kafka container and returns the broker address.
// The container is terminated via t.Cleanup.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.6.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = kc.Terminate(context.Background()) })

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err, "get kafka brokers")
	return brokers[0]
}

// startCrateDB spins up a single-node CrateDB and returns a consumer config
// pointing at its PostgreSQL endpoint.
func startCrateDB(ctx context.Context, t *testing.T) *config.Config {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "crate:5.10",
			ExposedPorts: []string{"5432/tcp", "4200/tcp"},
			Cmd:          []string{"-Cdiscovery.type=single-node"},
			Env:          map[string]string{"CRATE_HEAP_SIZE": "512m"},
			WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "start cratedb container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &config.Config{
		CrateDBHost:     host,
		CrateDBPort:     port,
		CrateDBUser:     "crate",
		CrateDBDatabase: "doc",
		CrateDBSchema:   testSchema,
		CrateDBTable:    testTable,
		CrateDBSSLMode:  "disable",
		CrateDBMaxConns: 2,
		SourceTopic:     "climate-data",
		BatchSize:       50,
	}
}

// openDB connects directly for fixtures and assertions.
func openDB(ctx context.Context, t *testing.T, dsn string) *pgx.Conn {
	t.Helper()
	var (
		conn *pgx.Conn
		err  error
	)
	deadline := time.Now().Add(time.Minute)
	for {
		conn, err = pgx.Connect(ctx, dsn)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "connect to cratedb")
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

// createTable creates the target table. The timestamp is stored as the
// epoch-seconds double the ingest path produces.
func createTable(ctx context.Context, t *testing.T, conn *pgx.Conn) {
	t.Helper()
	_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+testSchema+`.`+testTable+` (
		"timestamp" DOUBLE PRECISION,
		geo_location GEO_POINT,
		data OBJECT(DYNAMIC) AS (
			longitude DOUBLE PRECISION,
			latitude DOUBLE PRECISION,
			temperature DOUBLE PRECISION,
			u10 DOUBLE PRECISION,
			v10 DOUBLE PRECISION,
			pressure DOUBLE PRECISION
		)
	)`)
	require.NoError(t, err, "create table")
}

// countRows refreshes the table and returns its row count.
func countRows(ctx context.Context, t *testing.T, conn *pgx.Conn) int64 {
	t.Helper()
	_, err := conn.Exec(ctx, `REFRESH TABLE `+testSchema+`.`+testTable)
	require.NoError(t, err)

	var n int64
	require.NoError(t, conn.QueryRow(ctx, `SELECT count(*) FROM `+testSchema+`.`+testTable).Scan(&n))
	return n
}

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
