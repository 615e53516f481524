// Package events drains the transactional outbox to Kafka. Order rows
// and their outbox events commit in one transaction; the poller makes
// delivery at-least-once, so consumers dedupe on the order id key.
package events

import (
	"context"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

// OutboxSource is the slice of the order repository the poller needs.
type OutboxSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*orders.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	tick   time.Duration
	repo   OutboxSource
	writer publisher
	logger *zap.Logger
}

func NewOutboxPoller(repo OutboxSource, logger *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-orders",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, repo: repo, writer: w, logger: logger}
}

// Run blocks until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) drain(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Error("failed to publish outbox event",
				zap.Int("event_id", event.ID), zap.Error(err))
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event as processed",
				zap.Int("event_id", event.ID), zap.Error(err))
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *orders.OutboxEvent) error {
	msg := kafka.Message{
		// Order id keys the partition so events for one order stay ordered.
		Key:   []byte(event.AggregateId),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
