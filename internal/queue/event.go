// Package queue defines the booking event payload and the Kafka producer
// and consumer that move it.  Events are published on every booking state
// change; delivery is at-least-once and fire-and-forget from the
// admission service's point of view.
package queue

// BookingEvent is published to the booking-events topic whenever a
// booking is created, confirmed, cancelled or promoted.  Price is nil
// when the outcome carries no monetary commitment (a waitlisted
// booking); downstream consumers rely on that to distinguish the two.
type BookingEvent struct {
	BookingID uint64   `json:"booking_id"`
	UserID    uint64   `json:"user_id"`
	EventID   uint64   `json:"event_id"`
	Status    string   `json:"status"`
	Price     *float64 `json:"price"`
	Timestamp string   `json:"timestamp"`
}
