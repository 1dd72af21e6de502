package cratedb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the subset of *pgxpool.Pool the ingest path needs. CrateDB is
// reached over its PostgreSQL wire protocol endpoint.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// DialFunc opens a connection handle. It does not need to verify liveness;
// the Manager runs a smoke test afterwards.
type DialFunc func(ctx context.Context, cfg *config.Config) (Conn, error)

// DialPool opens a pgx pool against CrateDB.
func DialPool(ctx context.Context, cfg *config.Config) (Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse cratedb dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.CrateDBMaxConns) //nolint:gosec // validated positive and small by config

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open cratedb pool: %w", err)
	}
	return pool, nil
}

// DSN builds the connection URL. CrateDB treats the database name as the
// session's default schema.
func DSN(cfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.CrateDBUser, cfg.CrateDBPassword),
		Host:     net.JoinHostPort(cfg.CrateDBHost, strconv.Itoa(cfg.CrateDBPort)),
		Path:     "/" + cfg.CrateDBDatabase,
		RawQuery: url.Values{"sslmode": {cfg.CrateDBSSLMode}}.Encode(),
	}
	return u.String()
}
