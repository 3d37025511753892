package events

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	headerEventType = "event-type"
	headerEventID   = "event-id"
)

// producer is the part of *kgo.Client the publisher uses.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type kafkaPublisher struct {
	client producer
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher connects to the configured brokers. Records are keyed by
// order ID so every event of one order lands on the same partition.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) (Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	logger = logger.With().Str("component", "kafka-publisher").Logger()
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka publisher initialised")

	return newKafkaPublisher(client, cfg.Topic, logger), nil
}

func newKafkaPublisher(client producer, topic string, logger zerolog.Logger) *kafkaPublisher {
	return &kafkaPublisher{client: client, topic: topic, logger: logger}
}

// Publish produces the event and waits for the broker acknowledgement.
func (p *kafkaPublisher) Publish(ctx context.Context, event *model.OrderEvent) error {
	record, err := p.record(event)
	if err != nil {
		return err
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Error().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Msg("failed to publish order event")
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("order event published")
	return nil
}

func (p *kafkaPublisher) record(event *model.OrderEvent) (*kgo.Record, error) {
	value, err := json.Marshal(NewEnvelope(event))
	if err != nil {
		return nil, fmt.Errorf("failed to encode order event: %w", err)
	}

	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.OrderID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(event.Type)},
			{Key: headerEventID, Value: []byte(event.ID.String())},
		},
	}, nil
}

// Close releases the broker connections.
func (p *kafkaPublisher) Close() {
	p.client.Close()
}
