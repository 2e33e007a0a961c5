package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
// CANCELLED is terminal; a booking never leaves it.  WAITLISTED
// bookings may become CONFIRMED when capacity frees up, but a
// CONFIRMED booking never moves back to the waitlist.
type BookingStatus string

const (
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusWaitlisted BookingStatus = "WAITLISTED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// Booking records a user's admission request against an event.
// The user and event references are immutable after creation and
// the status only moves through the transitions described on
// BookingStatus.  BookingTime is set once at creation and serves
// as the FIFO ordering key for waitlist promotion.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the booking (from the auth service).
//  EventID     – event being booked (from the event service).
//  Status      – state of the booking (CONFIRMED, WAITLISTED, CANCELLED).
//  BookingTime – when the booking was requested; never changes.
//  CreatedAt   – creation timestamp.
type Booking struct {
	ID          uint64        `json:"id"`           // bookings.id
	UserID      uint64        `json:"user_id"`      // bookings.user_id
	EventID     uint64        `json:"event_id"`     // bookings.event_id
	Status      BookingStatus `json:"status"`       // bookings.status
	BookingTime time.Time     `json:"booking_time"` // bookings.booking_time
	CreatedAt   time.Time     `json:"created_at"`   // bookings.created_at
}
