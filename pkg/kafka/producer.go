package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
)

// Producer publishes CloudEvents to Kafka topics with metrics and tracing
type Producer struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewProducer creates a new Kafka producer
func NewProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		config:  config,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("kafka-producer"),
	}
}

func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              p.config.BatchSize,
		BatchTimeout:           p.config.BatchTimeout,
		WriteTimeout:           p.config.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(p.config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	p.writers[topic] = writer
	return writer
}

// BuildMessage converts an event into a Kafka message with CloudEvents binary headers.
// The subject is the key so every event of one fulfillment lands on one partition.
func BuildMessage(event *cloudevents.WMSCloudEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
			{Key: "ce-type", Value: []byte(event.Type)},
			{Key: "ce-source", Value: []byte(event.Source)},
			{Key: "ce-id", Value: []byte(event.ID)},
			{Key: "ce-time", Value: []byte(event.Time.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte(event.DataContentType)},
		},
		Time: event.Time,
	}

	optional := []struct{ key, value string }{
		{"ce-wmscorrelationid", event.CorrelationID},
		{"ce-wmstenantid", event.TenantID},
		{"ce-wmsfacilityid", event.FacilityID},
		{"ce-wmswarehouseid", event.WarehouseID},
		{"ce-traceparent", event.TraceParent},
		{"ce-tracestate", event.TraceState},
	}
	for _, h := range optional {
		if h.value != "" {
			msg.Headers = append(msg.Headers, kafka.Header{Key: h.key, Value: []byte(h.value)})
		}
	}

	return msg, nil
}

// PublishEvent publishes a CloudEvent to the specified topic
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.kafka.event_type", event.Type),
			attribute.String("messaging.message_id", event.ID),
		),
	)
	defer span.End()

	msg, err := BuildMessage(event)
	if err == nil {
		err = p.getWriter(topic).WriteMessages(ctx, msg)
	}

	duration := time.Since(start)
	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish event to topic %s: %w", topic, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes all writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
