package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes withdrawal lifecycle events to one topic keyed by fingerprint.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// payload is the wire form of model.WithdrawalEvent.
type payload struct {
	Type          model.EventType       `json:"type"`
	Fingerprint   string                `json:"fingerprint"`
	L2Chain       string                `json:"layer_2_chain_name"`
	State         model.WithdrawalState `json:"state"`
	FailureReason model.FailureReason   `json:"failure_reason,omitempty"`
	L2TxID        string                `json:"l2_tx_id,omitempty"`
	PayoutTxID    string                `json:"payout_tx_id,omitempty"`
	At            time.Time             `json:"at"`
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("kafka publisher requires topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// Publish encodes event and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.WithdrawalEvent) error {
	value, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Fingerprint),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, p.topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Encode renders event as JSON.
func Encode(event model.WithdrawalEvent) ([]byte, error) {
	return json.Marshal(payload{
		Type:          event.Type,
		Fingerprint:   event.Fingerprint,
		L2Chain:       event.L2Chain,
		State:         event.State,
		FailureReason: event.FailureReason,
		L2TxID:        event.L2TxID,
		PayoutTxID:    event.PayoutTxID,
		At:            event.At.UTC(),
	})
}

// Nop drops every event.
type Nop struct{}

// Publish implements usecase.EventPublisher.
func (Nop) Publish(context.Context, model.WithdrawalEvent) error { return nil }
