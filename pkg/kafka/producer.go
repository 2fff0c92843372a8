// Package kafka publishes lifecycle events for downstream notification
// consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ecotrace/collect-api/pkg/metrics"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// Config holds Kafka configuration
type Config struct {
	Brokers        []string
	LifecycleTopic string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, lifecycleTopic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers:        brokerList,
		LifecycleTopic: lifecycleTopic,
	}
}

// Producer handles producing messages to Kafka
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.LifecycleTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Allow Kafka to auto-create the topic in dev environments when it doesn't exist yet.
		// Without this, a first publish may fail with "Unknown Topic Or Partition".
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.LifecycleTopic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LifecycleEventMessage is one lifecycle transition, published after commit
// for the notification service to consume. Delivery is at-least-once,
// fire-and-forget.
type LifecycleEventMessage struct {
	Type       string `json:"type"` // e.g. "request.approved", "pickup.completed"
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Reference  string `json:"reference"`
	Status     string `json:"status"`

	ActorID      string `json:"actor_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// Publish publishes a lifecycle event message to Kafka
func (p *Producer) Publish(ctx context.Context, msg *LifecycleEventMessage) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.Publish")
	defer span.End()
	start := time.Now()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("event_type", msg.Type),
		attribute.String("reference", msg.Reference),
	)

	msg.TraceID = tracing.GetTraceID(ctx)
	msg.SpanID = tracing.GetSpanID(ctx)

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Key by entity so all events for one entity land on the same partition
	key := fmt.Sprintf("%s:%d", msg.EntityType, msg.EntityID)

	headers := []kafka.Header{
		{Key: "type", Value: []byte(msg.Type)},
		{Key: "entity_type", Value: []byte(msg.EntityType)},
		{Key: "reference", Value: []byte(msg.Reference)},
	}

	// W3C trace context headers for distributed tracing
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}
	if tracestate := tracing.GetTraceState(ctx); tracestate != "" {
		headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(tracestate)})
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish message")
		metrics.RecordKafkaPublish(p.topic, "error", time.Since(start).Seconds())
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to Kafka topic %s", p.topic)
		return err
	}

	span.SetStatus(codes.Ok, "message published")
	metrics.RecordKafkaPublish(p.topic, "success", time.Since(start).Seconds())
	return nil
}
