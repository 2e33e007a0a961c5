package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  All writes are
// single-row autocommit statements: cross-request serialization is the
// job of the lock coordinator, not the database, so the store only has
// to guarantee that a committed write is visible to the next reader.
// All timestamp columns are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, event_id, status, booking_time, created_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.Status, &b.BookingTime, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new booking and populates the generated ID and the
// database-assigned created_at on the provided record.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, event_id, status, booking_time) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, b.UserID, b.EventID, b.Status, b.BookingTime.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the row to pick up created_at and column defaults.
	const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	got, err := scanBooking(r.db.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID retrieves a booking by its ID.  It returns ErrBookingNotFound
// when no such booking exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateStatus sets the status of a single booking.  It returns
// ErrBookingNotFound when the booking does not exist.  The admission
// service is the only caller; nothing else writes booking status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such row" from "status already had this value".
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites the mutable fields of a booking (event reference and
// booking time).  Status is deliberately not part of this statement;
// status transitions go through UpdateStatus under the lock discipline.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET event_id = ?, booking_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, b.EventID, b.BookingTime.UTC(), b.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a booking row.  It returns ErrBookingNotFound when the
// booking does not exist.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM bookings WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// CountByEventAndStatus counts the bookings for an event in the given
// status.  With status CONFIRMED this is the capacity oracle: because
// admission writes happen before the lock is released, the count seen by
// the next lock holder always includes every committed decision.
func (r *BookingRepo) CountByEventAndStatus(ctx context.Context, eventID uint64, status model.BookingStatus) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, eventID, status).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindEarliestWaitlisted returns the waitlisted booking with the
// smallest booking_time for the event, or ErrBookingNotFound when the
// waitlist is empty.  Ordering by booking_time gives FIFO fairness for
// promotion; the id tie-break keeps the choice deterministic when two
// requests share a timestamp.
func (r *BookingRepo) FindEarliestWaitlisted(ctx context.Context, eventID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE event_id = ? AND status = ?
	           ORDER BY booking_time ASC, id ASC
	           LIMIT 1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, eventID, model.StatusWaitlisted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByUser returns all bookings created by the given user, newest
// first.  When the user has no bookings an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// ListAll returns every booking, newest first.  Intended for admin use.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
