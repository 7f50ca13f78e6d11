package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// CloudEvent is the CloudEvents v1.0 envelope used on the wire.
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         *string                `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType *string                `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`
}

const (
	cloudEventSpecVersion     = "1.0"
	cloudEventDataContentType = "application/json"
)

// Producer publishes activity events as CloudEvents to a Kafka topic.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	source   string
	topic    string
}

// NewProducer creates a synchronous, idempotent Kafka producer.
// cloudEventSource identifies this service, e.g. "/social-service".
func NewProducer(brokers []string, topic string, logger *zap.Logger, cloudEventSource string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &Producer{
		producer: producer,
		logger:   logger.Named("kafka_producer"),
		source:   cloudEventSource,
		topic:    topic,
	}, nil
}

// Emit wraps the activity event in a CloudEvent keyed by brand id and
// sends it synchronously. Errors are returned for logging; callers must
// not fail their operation on them.
func (p *Producer) Emit(ctx context.Context, event models.ActivityEvent) error {
	eventID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate event ID: %w", err)
	}

	contentType := cloudEventDataContentType
	subject := event.BrandID.String()
	cloudEvent := CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		ID:              eventID.String(),
		Source:          p.source,
		Type:            event.Type,
		DataContentType: &contentType,
		Subject:         &subject,
		Time:            time.Now().UTC(),
		Data:            event,
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		cloudEvent.Extensions = map[string]interface{}{"trace_id": spanCtx.TraceID().String()}
	}

	eventJSON, err := json.Marshal(cloudEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(eventJSON),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send CloudEvent to Kafka: %w", err)
	}

	p.logger.Debug("Activity event sent",
		zap.String("type", event.Type),
		zap.String("event_id", cloudEvent.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close shuts the underlying producer down.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
