package rules

// slotTemplate is the fixed set of eight daily one-hour booking slots.
// The labels are part of the public API contract: bookings store the
// label verbatim and clients render it as-is.
var slotTemplate = []string{
	"9:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"1:00 PM",
	"2:00 PM",
	"3:00 PM",
	"4:00 PM",
}

// Slots returns a copy of the daily slot template in display order.
func Slots() []string {
	out := make([]string, len(slotTemplate))
	copy(out, slotTemplate)
	return out
}

// ValidSlot reports whether label is one of the eight template slots.
func ValidSlot(label string) bool {
	for _, s := range slotTemplate {
		if s == label {
			return true
		}
	}
	return false
}

// FreeSlots subtracts the occupied labels from the daily template,
// preserving template order. Occupied labels not in the template are
// ignored.
func FreeSlots(occupied map[string]bool) []string {
	free := make([]string, 0, len(slotTemplate))
	for _, s := range slotTemplate {
		if !occupied[s] {
			free = append(free, s)
		}
	}
	return free
}
