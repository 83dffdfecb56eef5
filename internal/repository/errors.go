// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by someone
// else, while ErrSlotTaken signals that a booking slot is already
// occupied by a pending or approved booking.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a machine that still has pending bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSlotTaken is returned by the booking reserve operation when the
// requested (machine, date, slot) triple is already held by a
// PENDING or APPROVED booking. Handlers should translate this into
// an HTTP 409 response with a slot-specific message so clients can
// refresh the displayed availability.
var ErrSlotTaken = errors.New("slot already booked")

// ErrInvalidTransition is returned when a booking status update does
// not correspond to an edge of the booking state machine.
var ErrInvalidTransition = errors.New("invalid status transition")
