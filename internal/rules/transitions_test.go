package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnit/learnit-api/internal/model"
)

func TestCanTransition_Admin(t *testing.T) {
	testCases := []struct {
		from, to string
		want     bool
	}{
		{model.BookingStatusPending, model.BookingStatusApproved, true},
		{model.BookingStatusPending, model.BookingStatusRejected, true},
		{model.BookingStatusPending, model.BookingStatusCanceled, true},
		{model.BookingStatusApproved, model.BookingStatusCompleted, true},
		{model.BookingStatusApproved, model.BookingStatusCanceled, true},
		// Terminal states stay terminal.
		{model.BookingStatusRejected, model.BookingStatusApproved, false},
		{model.BookingStatusCompleted, model.BookingStatusCanceled, false},
		{model.BookingStatusCanceled, model.BookingStatusPending, false},
		// No skipping straight to completed.
		{model.BookingStatusPending, model.BookingStatusCompleted, false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to, true), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_Member(t *testing.T) {
	// Members may only cancel their own pending booking.
	assert.True(t, CanTransition(model.BookingStatusPending, model.BookingStatusCanceled, false))
	assert.False(t, CanTransition(model.BookingStatusApproved, model.BookingStatusCanceled, false))
	assert.False(t, CanTransition(model.BookingStatusPending, model.BookingStatusApproved, false))
}

func TestBlocking(t *testing.T) {
	assert.True(t, Blocking(model.BookingStatusPending))
	assert.True(t, Blocking(model.BookingStatusApproved))
	assert.False(t, Blocking(model.BookingStatusRejected))
	assert.False(t, Blocking(model.BookingStatusCompleted))
	assert.False(t, Blocking(model.BookingStatusCanceled))
}
