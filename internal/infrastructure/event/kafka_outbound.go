package event

import (
	"context"
	"fmt"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const kafkaSinkName = "kafka"

// MessageWriter is the subset of *kafka.Writer used by KafkaOutbound
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SinkMetrics receives outbox hook counters
type SinkMetrics interface {
	SinkReceived(sink, eventType string)
	SinkDelivered(sink, eventType string, err error)
}

// KafkaOutbound forwards every emitted event to a Kafka topic, keyed by
// aggregate ID so that one aggregate's events stay on one partition
type KafkaOutbound struct {
	writer     MessageWriter
	serializer *EventSerializer
	metrics    SinkMetrics
	logger     *zap.Logger
}

// NewKafkaWriter builds a synchronous writer for the configured topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
}

// NewKafkaOutbound creates the Kafka sink; metrics may be nil
func NewKafkaOutbound(writer MessageWriter, serializer *EventSerializer, metrics SinkMetrics, logger *zap.Logger) *KafkaOutbound {
	return &KafkaOutbound{
		writer:     writer,
		serializer: serializer,
		metrics:    metrics,
		logger:     logger,
	}
}

// Inbound counts the event before handlers run
func (k *KafkaOutbound) Inbound(_ context.Context, event shared.DomainEvent) error {
	if k.metrics != nil {
		k.metrics.SinkReceived(kafkaSinkName, event.EventType())
	}
	return nil
}

// Outbound writes the event to the topic
func (k *KafkaOutbound) Outbound(ctx context.Context, event shared.DomainEvent) error {
	payload, err := k.serializer.Serialize(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID().String())},
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		},
	}

	start := time.Now()
	err = k.writer.WriteMessages(ctx, msg)
	if k.metrics != nil {
		k.metrics.SinkDelivered(kafkaSinkName, event.EventType(), err)
	}
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", event.EventType(), err)
	}

	k.logger.Debug("event forwarded to kafka",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Close flushes and closes the writer
func (k *KafkaOutbound) Close() error {
	return k.writer.Close()
}

var _ shared.TransactionalOutbox = (*KafkaOutbound)(nil)
