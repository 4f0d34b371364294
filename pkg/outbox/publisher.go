package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
)

// EventPublisher delivers one CloudEvent to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// RepositorySource lists the outbox repositories to drain on each tick.
// Tenant databases appear as their connections are opened.
type RepositorySource func() []Repository

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// Publisher relays outbox events to Kafka
type Publisher struct {
	source    RepositorySource
	producer  EventPublisher
	logger    *logging.Logger
	interval  time.Duration
	batchSize int

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	stoppedCh    chan struct{}
	publishedCnt int
	failedCnt    int
}

// NewPublisher creates a new outbox publisher
func NewPublisher(source RepositorySource, producer EventPublisher, logger *logging.Logger, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	return &Publisher{
		source:    source,
		producer:  producer,
		logger:    logger.WithComponent("outbox-publisher"),
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start starts the publisher loop in the background
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher already running")
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("Starting outbox publisher", "interval", p.interval.String(), "batchSize", p.batchSize)

	go p.run(ctx)
	return nil
}

// Stop stops the publisher and waits for the loop to exit
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.stoppedCh

	p.mu.Lock()
	p.running = false
	stats := []any{"published", p.publishedCnt, "failed", p.failedCnt}
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped", stats...)
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.PublishPending(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// PublishPending drains one batch from every repository
func (p *Publisher) PublishPending(ctx context.Context) {
	for _, repo := range p.source() {
		p.drain(ctx, repo)
	}
}

func (p *Publisher) drain(ctx context.Context, repo Repository) {
	events, err := repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
			)
			p.count(false)

			if err := repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
			}
			continue
		}

		p.count(true)
		if err := repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event *OutboxEvent) error {
	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("failed to decode CloudEvent: %w", err)
	}
	return p.producer.PublishEvent(ctx, event.Topic, cloudEvent)
}

func (p *Publisher) count(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.publishedCnt++
	} else {
		p.failedCnt++
	}
}

// Stats returns publisher statistics
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.publishedCnt,
		"failed":    p.failedCnt,
	}
}

// Healthy reports an error while the relay loop is not running
func (p *Publisher) Healthy(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return fmt.Errorf("outbox publisher not running")
	}
	return nil
}
