package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ProgressInterval is the number of sends between progress reports.
const ProgressInterval = 500

// Sender delivers one document to a topic and waits for the acknowledgement.
type Sender interface {
	Send(ctx context.Context, topic string, doc json.RawMessage) error
}

// Publisher sends documents one by one with a fixed pause after each send.
type Publisher struct {
	sender   Sender
	interval time.Duration
	logger   *slog.Logger

	// OnProgress, if set, is called with the running total every
	// ProgressInterval sends.
	OnProgress func(sent int)
}

// NewPublisher creates a Publisher that pauses for interval after every send.
func NewPublisher(sender Sender, interval time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{sender: sender, interval: interval, logger: logger}
}

// Publish sends docs in order and returns how many were sent. The first send
// error aborts the run. Cancelling ctx interrupts the pause; there is no
// resume state.
func (p *Publisher) Publish(ctx context.Context, topic string, docs []json.RawMessage) (int, error) {
	sent := 0
	for _, doc := range docs {
		if err := p.sender.Send(ctx, topic, doc); err != nil {
			return sent, fmt.Errorf("send document %d: %w", sent, err)
		}
		sent++

		if err := sleep(ctx, p.interval); err != nil {
			return sent, err
		}

		if sent%ProgressInterval == 0 {
			p.logger.Info("sent documents", "count", sent)
			if p.OnProgress != nil {
				p.OnProgress(sent)
			}
		}
	}
	return sent, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
