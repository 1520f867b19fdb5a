package schedule

import "time"

// Decompose maps an arbitrary same-day reservation interval onto the
// canonical grid. A window counts as covered only when its midpoint lies
// strictly between start and end, so a reservation ending exactly on a
// window boundary never claims the window beyond it. Slots come back in grid
// order and carry the interval's calendar day.
func Decompose(start, end time.Time) []Slot {
	var slots []Slot
	for _, w := range Grid {
		mid := w.Midpoint(start)
		if start.Before(mid) && mid.Before(end) {
			slots = append(slots, WindowSlot(start, w))
		}
	}
	return slots
}
