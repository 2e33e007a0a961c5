package model

import "time"

// Event mirrors the payload served by the external event service.
// It is read-only in this service: capacity admission decisions are
// made against it but it is never written back.
//
// Fields:
//  ID        – event identifier in the event service.
//  Title     – human readable event name.
//  EventDate – when the event takes place.
//  Capacity  – maximum number of concurrently confirmed bookings.
//  Active    – whether the event currently accepts bookings.
//  Price     – ticket price, passed through to notifications.
type Event struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"eventDate"`
	Capacity  int       `json:"capacity"`
	Active    bool      `json:"active"`
	Price     float64   `json:"price"`
}
