package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the transport needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport publishes messages for a separate mailer to pick up.
// Messages are keyed by recipient so one inbox keeps its order.
type KafkaTransport struct {
	writer MessageWriter
}

func NewKafkaTransport(brokers []string, topic string) *KafkaTransport {
	return &KafkaTransport{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

func NewKafkaTransportWithWriter(w MessageWriter) *KafkaTransport {
	return &KafkaTransport{writer: w}
}

func (t *KafkaTransport) Deliver(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
		Time: msg.CreatedAt,
	})
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
