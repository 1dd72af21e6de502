package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes documents one at a time.
// It implements producer.Sender.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a synchronous producer. The topic is chosen per send.
// A nil transport uses the kafka-go default.
func NewWriter(brokers []string, transport *kafkago.Transport, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		// Flush every message immediately instead of waiting for BatchTimeout.
		BatchSize: 1,
	}
	if transport != nil {
		w.Transport = transport
	}
	return &Writer{writer: w, logger: logger}
}

// Send writes one document and waits for the broker acknowledgement.
func (w *Writer) Send(ctx context.Context, topic string, doc json.RawMessage) error {
	if err := w.writer.WriteMessages(ctx, newMessage(topic, doc)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func newMessage(topic string, doc json.RawMessage) kafkago.Message {
	return kafkago.Message{
		Topic: topic,
		Value: []byte(doc),
	}
}
