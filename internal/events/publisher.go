// Package events publishes job status changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// Publisher delivers job events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event domain.JobEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by job ID so that the
// events of a job stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.Topic, metrics, logger)
}

func newKafkaPublisher(w messageWriter, topic string, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		topic:   topic,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Str("topic", topic).Logger(),
	}
}

// Publish marshals the event as JSON and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.JobEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordEventPublished(observability.OutcomeError)
		return fmt.Errorf("marshal job event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.JobID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("job." + string(event.Status))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordEventPublished(observability.OutcomeError)
		p.logger.Error().Err(err).
			Str("job_id", event.JobID.String()).
			Str("status", string(event.Status)).
			Msg("failed to publish job event")
		return fmt.Errorf("publish job event: %w", err)
	}

	p.metrics.RecordEventPublished(observability.OutcomeSuccess)
	p.logger.Debug().
		Str("job_id", event.JobID.String()).
		Str("status", string(event.Status)).
		Msg("job event published")
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, domain.JobEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// New returns a KafkaPublisher when Kafka is enabled and a NopPublisher otherwise.
func New(cfg config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg, metrics, logger)
}
