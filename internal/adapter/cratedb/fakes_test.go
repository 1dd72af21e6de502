package cratedb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errNotImplemented = errors.New("not implemented")

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = 1
	return nil
}

// fakeBatchResults reports one row count per queued statement. A statement at
// failAt (when >= 0) returns execErr instead.
type fakeBatchResults struct {
	counts   []int64
	failAt   int
	execErr  error
	closeErr error
	next     int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	i := f.next
	f.next++
	if i == f.failAt {
		return pgconn.CommandTag{}, f.execErr
	}
	if i >= len(f.counts) {
		return pgconn.CommandTag{}, errors.New("no more results")
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", f.counts[i])), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errNotImplemented }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return fakeRow{err: errNotImplemented} }
func (f *fakeBatchResults) Close() error             { return f.closeErr }

type fakeConn struct {
	smokeErr error
	results  *fakeBatchResults

	mu     sync.Mutex
	batch  *pgx.Batch
	closed bool
}

func (c *fakeConn) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{err: c.smokeErr}
}

func (c *fakeConn) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batch = b
	return c.results
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

type fakeSource struct {
	conn Conn
	err  error
}

func (s fakeSource) Conn(_ context.Context) (Conn, error) {
	return s.conn, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(dial DialFunc) *Manager {
	m := NewManager(&config.Config{CrateDBHost: "localhost", CrateDBPort: 5432}, discardLogger(), observability.NewMetricsForTesting())
	m.dial = dial
	return m
}
