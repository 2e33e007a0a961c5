// Package service implements the admission engine: the one component
// allowed to decide and write booking status.  Every capacity decision
// happens inside a leased per-event critical section, and the durable
// write is guarded by a fencing-token check so a holder whose lease
// expired can never land a second write alongside its successor's.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// ErrEventInactive is returned when the event exists but does not
// accept bookings. Not retryable.
var ErrEventInactive = errors.New("event is not active")

// ErrEventFull is returned by Create under the reject policy when the
// event has no free capacity. Callers may retry after a cancellation.
var ErrEventFull = errors.New("event full")

// ErrLockLost is returned when the fencing check fails after the
// admission decision was made: the lease expired and another holder
// took over, so the pending write was discarded in full.
var ErrLockLost = errors.New("lock lost before commit")

// ErrBookingCancelled is returned when an operation would move a
// booking out of the terminal CANCELLED state.
var ErrBookingCancelled = errors.New("booking is cancelled")

// FullPolicy selects what Create does when the event is at capacity.
type FullPolicy string

const (
	// PolicyReject fails the request with ErrEventFull (the default).
	PolicyReject FullPolicy = "reject"
	// PolicyWaitlist accepts the request with status WAITLISTED.
	PolicyWaitlist FullPolicy = "waitlist"
)

// BookingStore is the durable record of bookings.  Implemented by
// repository.BookingRepo; tests substitute an in-memory fake.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
	Delete(ctx context.Context, id uint64) error
	CountByEventAndStatus(ctx context.Context, eventID uint64, status model.BookingStatus) (int, error)
	FindEarliestWaitlisted(ctx context.Context, eventID uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
}

// EventFetcher looks up event metadata in the external catalog.
type EventFetcher interface {
	Fetch(ctx context.Context, eventID uint64) (*model.Event, error)
}

// LockManager hands out leased, fenced critical sections per event.
type LockManager interface {
	Acquire(ctx context.Context, scope lock.Scope, eventID uint64) (lock.Lease, error)
	Validate(ctx context.Context, lease lock.Lease) (bool, error)
	Release(ctx context.Context, lease lock.Lease) error
}

// Notifier publishes booking state changes downstream.
type Notifier interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// AdmissionService orchestrates create, confirm, cancel and waitlist
// promotion.  It is safe for concurrent use; all shared state lives in
// the booking store and the lock manager.
type AdmissionService struct {
	bookings BookingStore
	events   EventFetcher
	locks    LockManager
	notifier Notifier
	policy   FullPolicy
}

// NewAdmissionService wires an AdmissionService.  A zero policy means
// PolicyReject.  All other dependencies must be non-nil.
func NewAdmissionService(bookings BookingStore, events EventFetcher, locks LockManager, notifier Notifier, policy FullPolicy) *AdmissionService {
	if bookings == nil || events == nil || locks == nil || notifier == nil {
		panic("nil dependency passed to NewAdmissionService")
	}
	if policy == "" {
		policy = PolicyReject
	}
	return &AdmissionService{
		bookings: bookings,
		events:   events,
		locks:    locks,
		notifier: notifier,
		policy:   policy,
	}
}

// Create admits a new booking for userID on eventID.  The whole
// decision runs under the booking-scope lock: fetch the event, verify
// it is active, count confirmed bookings against capacity, then check
// the fence and persist.  When the event is full the outcome depends on
// the configured FullPolicy.  A busy lock surfaces as lock.ErrBusy.
func (s *AdmissionService) Create(ctx context.Context, userID, eventID uint64) (*model.Booking, error) {
	lease, err := s.locks.Acquire(ctx, lock.ScopeBooking, eventID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.locks.Release(ctx, lease) }()

	ev, err := s.events.Fetch(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.Active {
		return nil, ErrEventInactive
	}
	confirmed, err := s.bookings.CountByEventAndStatus(ctx, eventID, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	status := model.StatusConfirmed
	if confirmed >= ev.Capacity {
		if s.policy != PolicyWaitlist {
			return nil, ErrEventFull
		}
		status = model.StatusWaitlisted
	}

	now := time.Now().UTC()
	b := &model.Booking{
		UserID:      userID,
		EventID:     eventID,
		Status:      status,
		BookingTime: now,
		CreatedAt:   now,
	}
	if err := s.checkFence(ctx, lease); err != nil {
		return nil, err
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.notify(ctx, b, priceFor(b.Status, ev))
	return b, nil
}

// Confirm resolves a booking's admission.  Confirming an already
// CONFIRMED booking is a no-op; confirming a CANCELLED one is refused.
// Otherwise capacity is re-checked under the booking-scope lock and the
// booking lands in CONFIRMED or WAITLISTED accordingly.  The resulting
// notification carries a price only for a confirmed outcome.
func (s *AdmissionService) Confirm(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.StatusConfirmed:
		return b, nil
	case model.StatusCancelled:
		return nil, ErrBookingCancelled
	}

	lease, err := s.locks.Acquire(ctx, lock.ScopeBooking, b.EventID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.locks.Release(ctx, lease) }()

	ev, err := s.events.Fetch(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.bookings.CountByEventAndStatus(ctx, b.EventID, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	status := model.StatusConfirmed
	if confirmed >= ev.Capacity {
		status = model.StatusWaitlisted
	}
	if status == b.Status {
		// Still waitlisted and the event is still full: nothing to write.
		return b, nil
	}
	if err := s.checkFence(ctx, lease); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(ctx, b.ID, status); err != nil {
		return nil, err
	}
	b.Status = status
	s.notify(ctx, b, priceFor(status, ev))
	return b, nil
}

// Cancel moves a booking to the terminal CANCELLED state and triggers a
// promotion pass to backfill the freed slot.  Cancelling an already
// cancelled booking returns it unchanged with no further side effects.
// The cancel write itself needs no lock: it is a single-row transition
// into a terminal state that can only shrink the confirmed count.
func (s *AdmissionService) Cancel(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusCancelled {
		return b, nil
	}
	if err := s.bookings.UpdateStatus(ctx, b.ID, model.StatusCancelled); err != nil {
		return nil, err
	}
	b.Status = model.StatusCancelled

	// Notify with the event's current price; an unreachable event
	// service downgrades the notification to a nil price rather than
	// failing a cancellation that already committed.
	var price *float64
	if ev, err := s.events.Fetch(ctx, b.EventID); err == nil {
		price = &ev.Price
	}
	s.notify(ctx, b, price)

	if err := s.promote(ctx, b.EventID); err != nil {
		// The cancellation is durable; a failed promotion pass is
		// retried by the next cancel on this event.
		log.Printf("admission: promotion after cancel of booking %d: %v", b.ID, err)
	}
	return b, nil
}

// promote confirms the earliest-waitlisted booking for the event when a
// confirmed slot is free.  It runs under the promotion-scope lock, a
// separate class from booking admission so an in-flight Create on the
// same event cannot deadlock with it.  Capacity is re-checked before
// promoting: a cancel of a waitlisted booking frees no slot.
func (s *AdmissionService) promote(ctx context.Context, eventID uint64) error {
	lease, err := s.locks.Acquire(ctx, lock.ScopePromotion, eventID)
	if err != nil {
		return err
	}
	defer func() { _ = s.locks.Release(ctx, lease) }()

	b, err := s.bookings.FindEarliestWaitlisted(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil
		}
		return err
	}
	ev, err := s.events.Fetch(ctx, eventID)
	if err != nil {
		return err
	}
	confirmed, err := s.bookings.CountByEventAndStatus(ctx, eventID, model.StatusConfirmed)
	if err != nil {
		return err
	}
	if confirmed >= ev.Capacity {
		return nil
	}
	if err := s.checkFence(ctx, lease); err != nil {
		return err
	}
	if err := s.bookings.UpdateStatus(ctx, b.ID, model.StatusConfirmed); err != nil {
		return err
	}
	b.Status = model.StatusConfirmed
	s.notify(ctx, b, &ev.Price)
	return nil
}

// Get returns a booking by ID.
func (s *AdmissionService) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// ListAll returns every booking, newest first.
func (s *AdmissionService) ListAll(ctx context.Context) ([]model.Booking, error) {
	return s.bookings.ListAll(ctx)
}

// ListByUser returns the bookings belonging to one user, newest first.
func (s *AdmissionService) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Update rewrites a booking's mutable fields.  Status is not among
// them: admission, confirmation and cancellation are the only paths
// that change status.  Zero-valued request fields leave the current
// value in place.
func (s *AdmissionService) Update(ctx context.Context, id uint64, eventID uint64, bookingTime *time.Time) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if eventID != 0 {
		b.EventID = eventID
	}
	if bookingTime != nil {
		b.BookingTime = bookingTime.UTC()
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a booking entirely and returns the removed record.
// Unlike Cancel it frees no slot for promotion; it exists for
// administrative cleanup of bookings that should never have existed.
func (s *AdmissionService) Delete(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// checkFence validates the lease right before a durable write and maps
// any uncertainty (store error included) to ErrLockLost: when we cannot
// prove the lease is current, the write must not happen.
func (s *AdmissionService) checkFence(ctx context.Context, lease lock.Lease) error {
	ok, err := s.locks.Validate(ctx, lease)
	if err != nil || !ok {
		return ErrLockLost
	}
	return nil
}

// notify publishes a state change and deliberately drops the error:
// notifications are at-least-once and fire-and-forget, and a publish
// failure never unwinds a committed booking.
func (s *AdmissionService) notify(ctx context.Context, b *model.Booking, price *float64) {
	_ = s.notifier.Publish(ctx, queue.BookingEvent{
		BookingID: b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Status:    string(b.Status),
		Price:     price,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func priceFor(status model.BookingStatus, ev *model.Event) *float64 {
	if status != model.StatusConfirmed {
		return nil
	}
	p := ev.Price
	return &p
}
