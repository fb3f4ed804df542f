package producer

import (
	"context"
	"encoding/json"
	"time"

	"fulfillment-service/internal/service"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// EventProducer публикует доменные события в Kafka. Ключ сообщения:
// AggregateID, поэтому события одной партии/листа попадают в одну партицию.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type Envelope struct {
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

func NewMessage(e service.DomainEvent) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(Envelope{
		Type:        e.EventType(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt().UTC(),
		Payload:     payload,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(e.AggregateID()),
		Value:   value,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.EventType())}},
	}, nil
}

func (p *EventProducer) Publish(ctx context.Context, e service.DomainEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg, err := NewMessage(e)
	if err != nil {
		return err
	}
	if uid, ok := service.UserIDFromContext(ctx); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "operator-id", Value: []byte(uid.String())})
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}

var _ service.EventBus = (*EventProducer)(nil)
