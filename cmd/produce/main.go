// Command produce provisions the climate topic and publishes the source
// documents to it at a fixed pace.
//
// Settings come from the environment; a .env file in the working directory
// is loaded first if present.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/producer"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadProducer()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("produce failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.ProducerConfig) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := kafkaadapter.NewTransport(ctx, cfg.KafkaSecurity)
	if err != nil {
		return fmt.Errorf("configure kafka security: %w", err)
	}

	admin := kafkaadapter.NewAdmin(cfg.Brokers, transport, logger)
	if err := admin.EnsureTopic(ctx, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		return err
	}

	src := producer.NewFileSource(cfg.SourcePath, cfg.SourceURL, logger)
	if !cfg.SkipDownload {
		logger.Info("downloading report", "year", cfg.SourceYear, "month", cfg.SourceMonth, "days", cfg.SourceDays)
		if err := src.Download(ctx, cfg.SourceYear, cfg.SourceMonth, cfg.SourceDays); err != nil {
			return err
		}
	}

	logger.Info("parsing report", "path", cfg.SourcePath)
	docs, err := src.Documents(ctx)
	if err != nil {
		return err
	}
	logger.Info("received combined JSON documents", "count", len(docs))

	writer := kafkaadapter.NewWriter(cfg.Brokers, transport, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	logger.Info("starting data ingestion", "topic", cfg.Topic, "wait_time", cfg.WaitTime)
	pub := producer.NewPublisher(writer, cfg.WaitTime, logger)

	sent, err := pub.Publish(ctx, cfg.Topic, docs)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, stopping", "sent", sent)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("finished sending data", "sent", sent)
	return nil
}
