package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/model"
)

func newMockRepo(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func bookingRows(bookings ...model.Booking) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "event_id", "status", "booking_time", "created_at"})
	for _, b := range bookings {
		rows.AddRow(b.ID, b.UserID, b.EventID, string(b.Status), b.BookingTime, b.CreatedAt)
	}
	return rows
}

func TestCreatePopulatesIDAndTimestamps(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings (user_id, event_id, status, booking_time) VALUES (?, ?, ?, ?)`)).
		WithArgs(uint64(7), uint64(3), "CONFIRMED", now).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(`SELECT id, user_id, event_id, status, booking_time, created_at FROM bookings WHERE id = \?`).
		WithArgs(uint64(12)).
		WillReturnRows(bookingRows(model.Booking{
			ID: 12, UserID: 7, EventID: 3, Status: model.StatusConfirmed,
			BookingTime: now, CreatedAt: now,
		}))

	b := &model.Booking{UserID: 7, EventID: 3, Status: model.StatusConfirmed, BookingTime: now}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, uint64(12), b.ID)
	assert.Equal(t, now, b.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status = ? WHERE id = ?`)).
		WithArgs("CANCELLED", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 5, model.StatusCancelled)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusUnknownBooking(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status = ? WHERE id = ?`)).
		WithArgs("CANCELLED", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Zero rows affected triggers an existence check.
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnError(sql.ErrNoRows)

	err := repo.UpdateStatus(context.Background(), 5, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE id = ?`)).
		WithArgs(uint64(44)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 44)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByEventAndStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status = ?`)).
		WithArgs(uint64(3), "CONFIRMED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountByEventAndStatus(context.Background(), 3, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEarliestWaitlistedOrdersByBookingTime(t *testing.T) {
	repo, mock := newMockRepo(t)
	early := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE event_id = \? AND status = \?\s+ORDER BY booking_time ASC, id ASC\s+LIMIT 1`).
		WithArgs(uint64(3), "WAITLISTED").
		WillReturnRows(bookingRows(model.Booking{
			ID: 8, UserID: 2, EventID: 3, Status: model.StatusWaitlisted,
			BookingTime: early, CreatedAt: early,
		}))

	b, err := repo.FindEarliestWaitlisted(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), b.ID)
	assert.Equal(t, model.StatusWaitlisted, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEarliestWaitlistedEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM bookings`).
		WithArgs(uint64(3), "WAITLISTED").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindEarliestWaitlisted(context.Background(), 3)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE user_id = \? ORDER BY created_at DESC`).
		WithArgs(uint64(7)).
		WillReturnRows(bookingRows(
			model.Booking{ID: 2, UserID: 7, EventID: 1, Status: model.StatusConfirmed, BookingTime: now, CreatedAt: now},
			model.Booking{ID: 1, UserID: 7, EventID: 1, Status: model.StatusCancelled, BookingTime: now, CreatedAt: now},
		))

	got, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
