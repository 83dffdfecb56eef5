package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnit/learnit-api/internal/model"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	mock.ExpectBegin()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return tx
}

const (
	reserveCheckQ  = `SELECT id FROM bookings WHERE machine_id = ? AND booking_date = ? AND time_slot = ? AND status IN ('PENDING','APPROVED') FOR UPDATE`
	reserveInsertQ = `INSERT INTO bookings (reference, user_id, machine_id, booking_date, time_slot, status, active_flag) VALUES (?, ?, ?, ?, ?, 'PENDING', 1)`
)

func TestBookingRepo_ReserveTx_FreeSlot(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery(regexp.QuoteMeta(reserveCheckQ)).
		WithArgs(uint64(1), "2025-06-01", "9:00 AM").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(reserveInsertQ)).
		WithArgs("ref-1", uint64(7), uint64(1), "2025-06-01", "9:00 AM").
		WillReturnResult(sqlmock.NewResult(42, 1))
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at, updated_at FROM bookings WHERE id = ?`)).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	b := &BookingRecord{
		Reference:   "ref-1",
		UserID:      7,
		MachineID:   1,
		BookingDate: time.Date(2025, 6, 1, 13, 30, 0, 0, time.UTC), // time-of-day must be dropped
		TimeSlot:    "9:00 AM",
	}
	err := repo.ReserveTx(context.Background(), tx, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), b.ID)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ReserveTx_SlotHeld(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	// An existing PENDING/APPROVED row for the triple is found under the
	// row lock; no insert may be attempted.
	mock.ExpectQuery(regexp.QuoteMeta(reserveCheckQ)).
		WithArgs(uint64(1), "2025-06-01", "9:00 AM").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(17))

	b := &BookingRecord{Reference: "ref-2", UserID: 8, MachineID: 1,
		BookingDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), TimeSlot: "9:00 AM"}
	err := repo.ReserveTx(context.Background(), tx, b)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ReserveTx_DuplicateKeyBackstop(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	// The check passes but a concurrent insert wins the race; the unique
	// key uq_booking_slot rejects ours and the error maps to ErrSlotTaken.
	mock.ExpectQuery(regexp.QuoteMeta(reserveCheckQ)).
		WithArgs(uint64(1), "2025-06-01", "9:00 AM").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(reserveInsertQ)).
		WithArgs("ref-3", uint64(9), uint64(1), "2025-06-01", "9:00 AM").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '1-2025-06-01-9:00 AM-1' for key 'uq_booking_slot'"))

	b := &BookingRecord{Reference: "ref-3", UserID: 9, MachineID: 1,
		BookingDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), TimeSlot: "9:00 AM"}
	err := repo.ReserveTx(context.Background(), tx, b)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_OccupiedSlots(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT time_slot FROM bookings WHERE machine_id = ? AND booking_date = ? AND status IN ('PENDING','APPROVED')`)).
		WithArgs(uint64(3), "2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"time_slot"}).AddRow("9:00 AM").AddRow("1:00 PM"))

	occupied, err := repo.OccupiedSlots(context.Background(), 3, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"9:00 AM": true, "1:00 PM": true}, occupied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusTx_ActiveFlag(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)

	// Approving keeps the slot held (flag 1).
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status=?, active_flag=? WHERE id=?`)).
		WithArgs(model.BookingStatusApproved, 1, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatusTx(context.Background(), tx, 5, model.BookingStatusApproved))

	// Rejecting releases the slot (flag NULL) so the triple can be
	// booked again.
	tx2 := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status=?, active_flag=? WHERE id=?`)).
		WithArgs(model.BookingStatusRejected, nil, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatusTx(context.Background(), tx2, 5, model.BookingStatusRejected))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusTx_MissingRow(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status=?, active_flag=? WHERE id=?`)).
		WithArgs(model.BookingStatusCanceled, nil, uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatusTx(context.Background(), tx, 99, model.BookingStatusCanceled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDateOnly(t *testing.T) {
	// 23:45+03:00 is 20:45 UTC on the same calendar day.
	in := time.Date(2025, 6, 1, 23, 45, 12, 999, time.FixedZone("X", 3*3600))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), DateOnly(in))
	// 01:00+03:00 falls on the previous UTC day.
	in = time.Date(2025, 6, 2, 1, 0, 0, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), DateOnly(in))
}
