package rules

import "github.com/learnit/learnit-api/internal/model"

// adminTransitions enumerates the booking status machine:
// PENDING → {APPROVED, REJECTED} → {COMPLETED, CANCELED}.
// REJECTED, COMPLETED and CANCELED are terminal. No transition is
// time-triggered; a past APPROVED booking stays APPROVED until an
// admin marks it COMPLETED.
var adminTransitions = map[string][]string{
	model.BookingStatusPending:  {model.BookingStatusApproved, model.BookingStatusRejected, model.BookingStatusCanceled},
	model.BookingStatusApproved: {model.BookingStatusCompleted, model.BookingStatusCanceled},
}

// CanTransition reports whether a booking may move from one status to
// another. Admins may perform any edge of the status machine; members
// may only cancel their own booking while it is still PENDING.
func CanTransition(from, to string, admin bool) bool {
	if !admin {
		return from == model.BookingStatusPending && to == model.BookingStatusCanceled
	}
	for _, next := range adminTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Blocking reports whether a booking in the given status occupies its
// (machine, date, slot) triple. Only PENDING and APPROVED bookings
// block; rejected, completed and canceled bookings free the slot.
func Blocking(status string) bool {
	return status == model.BookingStatusPending || status == model.BookingStatusApproved
}
