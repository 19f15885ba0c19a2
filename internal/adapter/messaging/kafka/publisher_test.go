package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"group-vault/internal/core/domain"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerConfig(t *testing.T) {
	cfg := NewProducerConfig("group-vault")
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, 3, cfg.Producer.Retry.Max)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, "group-vault", cfg.ClientID)
}

func TestPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	defer producer.Close()

	vaultID := uuid.New()
	event := domain.NewEvent(domain.EventVaultDeposit, vaultID, "alice", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "vault-events" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != vaultID.String() {
			return errors.New("message not keyed by vault id")
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got domain.Event
		if err := json.Unmarshal(raw, &got); err != nil {
			return err
		}
		if got.Type != domain.EventVaultDeposit || got.ActorID != "alice" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub := NewPublisher(producer, "vault-events", zerolog.New(io.Discard))
	assert.Equal(t, "kafka", pub.Name())
	require.NoError(t, pub.Publish(context.Background(), event))
}

func TestPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisher(producer, "vault-events", zerolog.New(io.Discard))
	err := pub.Publish(context.Background(), domain.NewEvent(domain.EventApprovalExecuted, uuid.New(), "bob", time.Now()))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewPublisher(producer, "vault-events", zerolog.New(io.Discard))
	err := pub.Publish(ctx, domain.NewEvent(domain.EventVaultDeleted, uuid.New(), "alice", time.Now()))
	assert.ErrorIs(t, err, context.Canceled)
}
