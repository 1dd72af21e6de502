package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const adminTimeout = 30 * time.Second

type topicCreator interface {
	CreateTopics(ctx context.Context, req *kafkago.CreateTopicsRequest) (*kafkago.CreateTopicsResponse, error)
}

// Admin provisions topics.
type Admin struct {
	client topicCreator
	logger *slog.Logger
}

// NewAdmin creates an admin client for brokers. A nil transport uses the
// kafka-go default.
func NewAdmin(brokers []string, transport *kafkago.Transport, logger *slog.Logger) *Admin {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokers...),
		Timeout: adminTimeout,
	}
	if transport != nil {
		client.Transport = transport
	}
	return &Admin{client: client, logger: logger}
}

// EnsureTopic creates the topic. A topic that already exists counts as
// success, so the call is safe to repeat.
func (a *Admin) EnsureTopic(ctx context.Context, name string, partitions, replicationFactor int) error {
	resp, err := a.client.CreateTopics(ctx, &kafkago.CreateTopicsRequest{
		Topics: []kafkago.TopicConfig{{
			Topic:             name,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		}},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", name, err)
	}

	if topicErr := resp.Errors[name]; topicErr != nil {
		if errors.Is(topicErr, kafkago.TopicAlreadyExists) {
			a.logger.Info("topic already exists", "topic", name)
			return nil
		}
		return fmt.Errorf("create topic %s: %w", name, topicErr)
	}

	a.logger.Info("topic created", "topic", name, "partitions", partitions, "replication_factor", replicationFactor)
	return nil
}
