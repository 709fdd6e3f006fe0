package eventpublisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
	"github.com/iho/branchledger/internal/usecase"
)

// Publisher delivers one outbox event to an external system.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for EventPublisher. Zero BatchSize and Interval fall back to 100
// events every 5 seconds.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int
	Interval   time.Duration
}

// EventPublisher relays committed outbox events to a Publisher. Events of
// one aggregate (a payment, a transfer, an account) leave in the order they
// were written: once one fails, later events of the same aggregate wait for
// the next pass.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start relays immediately and then on every tick until ctx is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("outbox relay started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		if _, err := ep.Relay(ctx); err != nil {
			ep.logger.Error().Err(err).Msg("outbox relay failed")
		}

		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Relay publishes pending events batch by batch until the outbox is drained
// or a batch has a failure, and returns how many were published.
func (ep *EventPublisher) Relay(ctx context.Context) (int, error) {
	total := 0
	for {
		events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
		if err != nil {
			return total, err
		}

		published, failed := ep.publishBatch(ctx, events)
		total += published

		if failed || len(events) < ep.batchSize || ctx.Err() != nil {
			return total, nil
		}
	}
}

func (ep *EventPublisher) publishBatch(ctx context.Context, events []*domain.OutboxEvent) (published int, failed bool) {
	blocked := map[string]bool{}

	for _, event := range events {
		if blocked[event.AggregateID] {
			failed = true
			continue
		}

		if err := ep.publisher.Publish(ctx, event); err != nil {
			ep.count(event, "error")
			ep.logger.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Str("aggregate_id", event.AggregateID).
				Msg("failed to publish event")
			blocked[event.AggregateID] = true
			failed = true
			continue
		}
		ep.count(event, "published")

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			// The event goes out again next pass; consumers dedupe on event id.
			ep.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark event as published")
			failed = true
			continue
		}
		published++
	}

	if published > 0 {
		ep.logger.Debug().Int("published", published).Int("fetched", len(events)).Msg("outbox batch relayed")
	}
	return published, failed
}

func (ep *EventPublisher) count(event *domain.OutboxEvent, status string) {
	if ep.metrics != nil {
		ep.metrics.OutboxPublished.WithLabelValues(event.EventType, status).Inc()
	}
}
