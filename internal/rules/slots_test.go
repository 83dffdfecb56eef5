package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlots(t *testing.T) {
	slots := Slots()
	require.Len(t, slots, 8)
	assert.Equal(t, "9:00 AM", slots[0])
	assert.Equal(t, "4:00 PM", slots[7])

	// Mutating the returned slice must not affect the template.
	slots[0] = "mutated"
	assert.Equal(t, "9:00 AM", Slots()[0])
}

func TestValidSlot(t *testing.T) {
	assert.True(t, ValidSlot("9:00 AM"))
	assert.True(t, ValidSlot("12:00 PM"))
	assert.False(t, ValidSlot("9:00AM"))
	assert.False(t, ValidSlot("5:00 PM"))
	assert.False(t, ValidSlot(""))
}

func TestFreeSlots(t *testing.T) {
	occupied := map[string]bool{
		"9:00 AM": true,
		"1:00 PM": true,
		"bogus":   true, // not in the template, ignored
	}
	free := FreeSlots(occupied)
	assert.Equal(t, []string{"10:00 AM", "11:00 AM", "12:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"}, free)

	assert.Len(t, FreeSlots(nil), 8)
	assert.Empty(t, FreeSlots(map[string]bool{
		"9:00 AM": true, "10:00 AM": true, "11:00 AM": true, "12:00 PM": true,
		"1:00 PM": true, "2:00 PM": true, "3:00 PM": true, "4:00 PM": true,
	}))
}
