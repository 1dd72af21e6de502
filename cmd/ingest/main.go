// Command ingest consumes climate telemetry and writes it to CrateDB. It runs
// the Kafka consume loop and serves the invocation endpoint alongside health,
// readiness, and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-data-etl/internal/adapter/cratedb"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cratedb.NewManager(cfg, logger, metrics)
	defer store.Close()

	inserter := cratedb.NewInserter(store, cfg.CrateDBSchema, cfg.CrateDBTable, logger, metrics)
	handler := pipeline.NewHandler(inserter, store, cfg.SourceTopic, logger, metrics)

	var reader *kafkaadapter.Reader
	if cfg.KafkaConsumerEnabled {
		dialer, err := kafkaadapter.NewDialer(ctx, cfg.KafkaSecurity)
		if err != nil {
			return fmt.Errorf("configure kafka security: %w", err)
		}
		reader = kafkaadapter.NewReader(cfg, dialer, logger)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, handler, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if reader != nil {
		p := pipeline.New(reader, handler, logger, metrics, cfg.BatchSize)
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka consumer disabled, serving invocations only")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
