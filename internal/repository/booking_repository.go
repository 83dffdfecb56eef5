package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/rules"
)

// BookingRepo provides CRUD operations for machine bookings and owns
// the reserve-if-free operation. A (machine, date, slot) triple may
// be held by at most one PENDING or APPROVED booking.
//
// Two mechanisms enforce that together. ReserveTx locks existing rows
// for the triple with SELECT ... FOR UPDATE before inserting, which
// serializes concurrent submissions touching the same slot. As a
// backstop the bookings table carries uq_booking_slot, a unique key
// over (machine_id, booking_date, time_slot, active_flag) where
// active_flag is 1 for PENDING/APPROVED rows and NULL otherwise;
// MySQL ignores NULLs in unique keys, so released slots can be
// re-booked while a concurrent insert that slipped past the lock
// still fails with a duplicate-key error mapped to ErrSlotTaken.
// All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// BookingRecord mirrors the schema of the bookings table. It is used
// internally by the repository when constructing or scanning rows.
type BookingRecord struct {
	ID          uint64
	Reference   string
	UserID      uint64
	MachineID   uint64
	BookingDate time.Time
	TimeSlot    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateOnly normalizes a timestamp to its UTC calendar day. Booking
// dates are stored date-only; all comparisons assume midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const bookingDateFmt = "2006-01-02"

// ReserveTx atomically creates a PENDING booking if the requested
// (machine, date, slot) triple is free, within the scope of an
// existing transaction. It returns ErrSlotTaken when a PENDING or
// APPROVED booking already holds the triple, either found under the
// row lock or surfaced as a duplicate-key error from uq_booking_slot.
// On success the generated ID and timestamps are populated on the
// record. The caller must commit or roll back the transaction.
func (r *BookingRepo) ReserveTx(ctx context.Context, tx *sql.Tx, b *BookingRecord) error {
	date := DateOnly(b.BookingDate).Format(bookingDateFmt)
	// Lock any blocking rows for this triple so two submissions cannot
	// both pass the availability check.
	const checkQ = `SELECT id FROM bookings
		WHERE machine_id = ? AND booking_date = ? AND time_slot = ?
		  AND status IN ('PENDING','APPROVED')
		FOR UPDATE`
	var existing uint64
	err := tx.QueryRowContext(ctx, checkQ, b.MachineID, date, b.TimeSlot).Scan(&existing)
	if err == nil {
		return ErrSlotTaken
	}
	if err != sql.ErrNoRows {
		return err
	}
	const ins = `INSERT INTO bookings
		(reference, user_id, machine_id, booking_date, time_slot, status, active_flag)
		VALUES (?, ?, ?, ?, ?, 'PENDING', 1)`
	res, err := tx.ExecContext(ctx, ins, b.Reference, b.UserID, b.MachineID, date, b.TimeSlot)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrSlotTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingStatusPending
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// OccupiedSlots returns the set of slot labels held by PENDING or
// APPROVED bookings for a machine on a given date. The result is
// subtracted from the fixed slot template by rules.FreeSlots.
func (r *BookingRepo) OccupiedSlots(ctx context.Context, machineID uint64, date time.Time) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT time_slot FROM bookings
		 WHERE machine_id = ? AND booking_date = ? AND status IN ('PENDING','APPROVED')`,
		machineID, DateOnly(date).Format(bookingDateFmt))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupied := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		occupied[slot] = true
	}
	return occupied, rows.Err()
}

// BookingDetail is a booking joined with machine and user display
// fields for list endpoints.
type BookingDetail struct {
	ID          uint64 `json:"id"`
	Reference   string `json:"reference"`
	UserID      uint64 `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	MachineID   uint64 `json:"machine_id"`
	MachineName string `json:"machine_name"`
	BookingDate string `json:"date"`
	TimeSlot    string `json:"time_slot"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func scanBookingDetail(rows *sql.Rows, withUser bool) (BookingDetail, error) {
	var d BookingDetail
	var date, created time.Time
	var err error
	if withUser {
		err = rows.Scan(&d.ID, &d.Reference, &d.UserID, &d.UserName, &d.MachineID,
			&d.MachineName, &date, &d.TimeSlot, &d.Status, &created)
	} else {
		err = rows.Scan(&d.ID, &d.Reference, &d.UserID, &d.MachineID,
			&d.MachineName, &date, &d.TimeSlot, &d.Status, &created)
	}
	if err != nil {
		return d, err
	}
	d.BookingDate = date.UTC().Format(bookingDateFmt)
	d.CreatedAt = created.UTC().Format(time.RFC3339)
	return d, nil
}

// ListByUser returns all bookings for the given user with machine
// details, newest first. Bookings whose machine was deleted are
// excluded by the join rather than surfaced as errors.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.reference, b.user_id, b.machine_id, m.name,
		        b.booking_date, b.time_slot, b.status, b.created_at
		 FROM bookings b
		 JOIN machines m ON m.id = b.machine_id
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows, false)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListAll returns bookings for the admin review queue, optionally
// filtered by machine, date and status. Results are newest first.
func (r *BookingRepo) ListAll(ctx context.Context, machineID uint64, date *time.Time, status string) ([]BookingDetail, error) {
	q := `SELECT b.id, b.reference, b.user_id, u.name, b.machine_id, m.name,
	             b.booking_date, b.time_slot, b.status, b.created_at
	      FROM bookings b
	      JOIN machines m ON m.id = b.machine_id
	      JOIN users u ON u.id = b.user_id`
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if machineID != 0 {
		conds = append(conds, "b.machine_id = ?")
		args = append(args, machineID)
	}
	if date != nil {
		conds = append(conds, "b.booking_date = ?")
		args = append(args, DateOnly(*date).Format(bookingDateFmt))
	}
	if status != "" {
		conds = append(conds, "b.status = ?")
		args = append(args, status)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY b.created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows, true)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetForUpdateTx loads a booking row and locks it for the duration of
// the transaction, so a status decision cannot race another admin's.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (BookingRecord, error) {
	var b BookingRecord
	err := tx.QueryRowContext(ctx,
		`SELECT id, reference, user_id, machine_id, booking_date, time_slot, status,
		        created_at, updated_at
		 FROM bookings WHERE id = ? FOR UPDATE`, id).
		Scan(&b.ID, &b.Reference, &b.UserID, &b.MachineID, &b.BookingDate,
			&b.TimeSlot, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// TransitionTx validates and applies a status change on a locked
// booking. Returns ErrInvalidTransition when the status machine
// forbids the move for the caller's role.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, rec BookingRecord, to string, admin bool) error {
	if !rules.CanTransition(rec.Status, to, admin) {
		return ErrInvalidTransition
	}
	return r.UpdateStatusTx(ctx, tx, rec.ID, to)
}

// UpdateStatusTx moves a locked booking to a new status and keeps
// active_flag in step: blocking statuses hold the slot (flag 1),
// everything else releases it (flag NULL) so the triple can be
// re-booked. Transition legality is checked by TransitionTx.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	var flag interface{}
	if rules.Blocking(status) {
		flag = 1
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=?, active_flag=? WHERE id=?", status, flag, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
