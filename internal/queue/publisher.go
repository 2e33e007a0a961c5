package queue

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// Topic is the Kafka topic carrying booking state changes.  Messages are
// keyed by booking ID so all events for one booking land on the same
// partition in order.
const Topic = "booking-events"

// Publisher writes BookingEvents to Kafka.  Publish errors are logged
// and returned so callers can ignore them without interrupting the
// request flow; a lost notification never rolls back a booking.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Publisher for the given brokers and topic.
// An empty topic falls back to the Topic default.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = Topic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // hash by key keeps per-booking ordering
			RequiredAcks: kafka.RequireAll,
			Logger:       kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:  kafka.LoggerFunc(log.Printf),
		},
	}
}

// Publish sends one booking event keyed by its booking ID.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("kafka: marshal event failed: %v", err)
		return err
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.BookingID, 10)),
		Value: body,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("kafka: publish booking %d failed: %v", ev.BookingID, err)
		return err
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
