package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventVersion is the envelope schema version written to the topic
const EventVersion = 1

// Envelope wraps every lifecycle event published to Kafka
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes lifecycle events keyed by order id, so every
// event of one order lands on the same partition in order.
type KafkaDispatcher struct {
	writer   messageWriter
	producer string
}

// NewKafkaDispatcher creates an async writer for topic on brokers
func NewKafkaDispatcher(brokers []string, topic, producer string) *KafkaDispatcher {
	return newKafkaDispatcher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}, producer)
}

func newKafkaDispatcher(w messageWriter, producer string) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w, producer: producer}
}

// Dispatch encodes event into an Envelope and hands it to the writer
func (d *KafkaDispatcher) Dispatch(ctx context.Context, event LifecycleEvent) error {
	msg, err := d.encode(event)
	if err != nil {
		return err
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %d: %w", event.Type, event.OrderID, err)
	}
	return nil
}

// Close flushes pending messages
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func (d *KafkaDispatcher) encode(event LifecycleEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode payload: %w", err)
	}

	orderID := strconv.FormatUint(uint64(event.OrderID), 10)
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type),
		EventVersion:  EventVersion,
		OccurredAt:    event.OccurredAt.UTC(),
		Producer:      d.producer,
		CorrelationID: orderID,
		Payload:       payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}

	return kafka.Message{
		Key:   []byte(orderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}, nil
}
