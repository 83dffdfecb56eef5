package model

import "time"

// Booking status values stored in bookings.status. A booking starts
// PENDING; only admins move it out of PENDING. COMPLETED and
// CANCELED are terminal. The valid transitions live in the rules
// package, not here.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusApproved  = "APPROVED"
	BookingStatusRejected  = "REJECTED"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCanceled  = "CANCELED"
)

// Booking records a member's reservation of one machine for one of
// the eight fixed daily time slots. At most one PENDING/APPROVED
// booking may exist per (machine, date, slot); the repository
// enforces this inside a transaction backed by a unique index.
//
// Fields:
//  ID          – primary key identifier.
//  Reference   – opaque public reference shown to the member (UUID).
//  UserID      – member who booked.
//  MachineID   – machine being booked.
//  BookingDate – calendar day of the slot (date only, UTC).
//  TimeSlot    – one of the eight labels from rules.Slots().
//  Status      – one of the BookingStatus* constants.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Booking struct {
	ID          uint64    // bookings.id
	Reference   string    // bookings.reference
	UserID      uint64    // bookings.user_id
	MachineID   uint64    // bookings.machine_id
	BookingDate time.Time // bookings.booking_date
	TimeSlot    string    // bookings.time_slot
	Status      string    // bookings.status
	CreatedAt   time.Time // bookings.created_at
	UpdatedAt   time.Time // bookings.updated_at
}
