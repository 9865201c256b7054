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

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds Kafka configuration
type Config struct {
	Brokers         []string
	EvaluationTopic string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, evaluationTopic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers:         brokerList,
		EvaluationTopic: evaluationTopic,
	}
}

// Producer publishes evaluation events to Kafka
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EvaluationTopic,
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
		topic:  cfg.EvaluationTopic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// EvaluationEventMessage is emitted for every criteria evaluation so
// downstream consumers can build usage analytics.
type EvaluationEventMessage struct {
	DomainID    string    `json:"domain_id"`
	ConfigKey   string    `json:"config_key"`
	Component   string    `json:"component,omitempty"`
	Environment string    `json:"environment"`
	Result      bool      `json:"result"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// PublishEvaluation publishes an evaluation event to Kafka
func (p *Producer) PublishEvaluation(ctx context.Context, msg *EvaluationEventMessage) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishEvaluation")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("domain_id", msg.DomainID),
		attribute.String("config_key", msg.ConfigKey),
	)

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.TraceID = tracing.GetTraceID(ctx)
	msg.SpanID = tracing.GetSpanID(ctx)

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Partition by domain + config so per-flag ordering is preserved
	key := fmt.Sprintf("%s:%s", msg.DomainID, msg.ConfigKey)

	headers := []kafka.Header{
		{Key: "domain_id", Value: []byte(msg.DomainID)},
		{Key: "config_key", Value: []byte(msg.ConfigKey)},
		{Key: "environment", Value: []byte(msg.Environment)},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish message")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to Kafka topic %s", p.topic)
		return err
	}

	span.SetStatus(codes.Ok, "message published")
	p.logger.WithContext(ctx).Debugf("Published evaluation event to Kafka: config=%s env=%s result=%t",
		msg.ConfigKey, msg.Environment, msg.Result)

	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
