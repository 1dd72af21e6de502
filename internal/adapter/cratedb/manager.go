package cratedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
)

// ErrNoConnection is returned when CrateDB cannot be reached.
var ErrNoConnection = errors.New("no cratedb connection")

// Manager owns the process-wide CrateDB handle. It is constructed once per
// process and shared by reference.
//
// Failed attempts are never cached (no negative caching): every call to Conn
// after a failure dials again until one attempt succeeds. After that the
// handle is reused for the rest of the process lifetime.
type Manager struct {
	cfg     *config.Config
	dial    DialFunc
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	conn      Conn
	coldStart bool
}

// NewManager creates a Manager that dials lazily on first use.
func NewManager(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:       cfg,
		dial:      DialPool,
		logger:    logger,
		metrics:   metrics,
		coldStart: true,
	}
}

// Conn returns the cached handle, or dials and smoke-tests a new one.
// Errors wrap ErrNoConnection.
func (m *Manager) Conn(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return m.conn, nil
	}

	conn, err := m.connect(ctx)
	if err != nil {
		m.metrics.StoreConnections.WithLabelValues("failure").Inc()
		m.logger.Error("failed to establish cratedb connection",
			"host", m.cfg.CrateDBHost,
			"port", m.cfg.CrateDBPort,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
	}

	m.metrics.StoreConnections.WithLabelValues("success").Inc()
	m.logger.Info("connected to cratedb", "host", m.cfg.CrateDBHost, "port", m.cfg.CrateDBPort)
	m.conn = conn
	return conn, nil
}

func (m *Manager) connect(ctx context.Context) (Conn, error) {
	conn, err := m.dial(ctx, m.cfg)
	if err != nil {
		return nil, err
	}

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		conn.Close()
		return nil, fmt.Errorf("smoke test: %w", err)
	}
	return conn, nil
}

// WarmUp connects on the first call per process and reports whether that call
// was the cold start. Later calls do nothing. A failed warm-up is only logged;
// the next Conn call retries.
func (m *Manager) WarmUp(ctx context.Context) bool {
	m.mu.Lock()
	cold := m.coldStart
	m.coldStart = false
	m.mu.Unlock()

	if !cold {
		return false
	}
	m.logger.Info("cold start: initialising cratedb connection")
	_, _ = m.Conn(ctx)
	return true
}

// CheckReadiness reports whether a CrateDB connection is available.
func (m *Manager) CheckReadiness(ctx context.Context) error {
	_, err := m.Conn(ctx)
	return err
}

// Close releases the cached handle, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
