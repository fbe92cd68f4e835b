package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/careops/queue-api/internal/model"
	"github.com/careops/queue-api/internal/repository"
	"github.com/careops/queue-api/pkg/logger"
	"github.com/careops/queue-api/pkg/messaging"
	"github.com/careops/queue-api/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type OutboxProcessorConfig struct {
	Channel      string
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	RetainFor    time.Duration
	CleanupEvery time.Duration
}

func (c *OutboxProcessorConfig) applyDefaults() {
	if c.Channel == "" {
		c.Channel = "queue.events"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.RetainFor <= 0 {
		c.RetainFor = 24 * time.Hour
	}
	if c.CleanupEvery <= 0 {
		c.CleanupEvery = time.Hour
	}
}

// OutboxProcessor drains queue events written by the service layer and
// publishes them to the broker. Events that keep failing past MaxRetries
// are parked as dead instead of being retried forever.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	config.applyDefaults()

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(p.config.CleanupEvery)
	defer cleanup.Stop()

	p.logger.Info("starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
		case <-cleanup.C:
			deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.config.RetainFor))
			if err != nil {
				p.logger.Error(err, "failed to clean up processed events")
				continue
			}
			if deleted > 0 {
				p.logger.Debug("cleaned up processed events", "deleted", deleted)
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxPublishLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.broker.Publish(ctx, p.config.Channel, event.Payload)
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()

		if event.RetryCount+1 >= p.config.MaxRetries {
			if deadErr := p.repo.MarkDead(ctx, event.ID, err.Error()); deadErr != nil {
				return fmt.Errorf("failed to park event as dead: %w", deadErr)
			}
			p.logger.Warn("event parked as dead",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			return err
		}

		retryAt := time.Now().Add(p.config.RetryDelay)
		if failErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), &retryAt); failErr != nil {
			return fmt.Errorf("failed to mark event failed: %w", failErr)
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}
