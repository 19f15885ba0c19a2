// Package kafka publishes vault and approval events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"group-vault/config"
	"group-vault/internal/core/domain"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// NewProducerConfig returns the producer settings used for event delivery.
// Every in-sync replica must acknowledge before SendMessage returns.
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// NewSyncProducer dials the configured brokers.
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return producer, nil
}

// Publisher implements ports.EventSink on a sarama.SyncProducer.
// Events are keyed by vault id so one vault's events stay ordered in a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// NewPublisher creates a Kafka event sink.
func NewPublisher(producer sarama.SyncProducer, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

func (p *Publisher) Name() string {
	return "kafka"
}

// Publish sends the event and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Key()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka send %s: %w", event.Type, err)
	}

	p.log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event published")
	return nil
}

// Close flushes and closes the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
