package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/segmentio/kafka-go"
)

// StartBookingConsumer consumes the booking-events topic and appends each
// event to logs/booking.log in a single-line, human-friendly format.  The
// reader handles broker reconnects internally; processing errors are
// logged and the message is committed anyway so a poison message cannot
// wedge the consumer.  The function returns when ctx is cancelled.
func StartBookingConsumer(ctx context.Context, brokers []string, topic, groupID string) error {
	if topic == "" {
		topic = Topic
	}
	if groupID == "" {
		groupID = "booking-audit"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		Logger:      kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(log.Printf),
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		if err := handleMessage(msg.Value); err != nil {
			log.Printf("booking-consumer: handle message failed: %v", err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("booking-consumer: commit failed: %v", err)
		}
	}
}

func handleMessage(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	price := "-"
	if ev.Price != nil {
		price = fmt.Sprintf("%.2f", *ev.Price)
	}
	line := fmt.Sprintf("[%s] Booking %s | booking_id=%d | user_id=%d | event_id=%d | price=%s\n",
		ev.Timestamp, ev.Status, ev.BookingID, ev.UserID, ev.EventID, price)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
