// Package schedule implements the calendar/slot engine: the fixed daily slot
// grid, recurring access policy expansion, and decomposition of arbitrary
// reservation intervals onto the grid.
package schedule

import (
	"fmt"
	"time"
)

// Window is one of the canonical daily time windows the hall is rented in.
type Window struct {
	Name      string
	StartHour int
	EndHour   int
}

// Grid is the canonical daily grid. The four windows are contiguous,
// non-overlapping, and cover 05:00-21:00 only. Order matters: decomposition
// emits slots in grid order.
var Grid = [4]Window{
	{Name: "early", StartHour: 5, EndHour: 9},
	{Name: "morning", StartHour: 9, EndHour: 13},
	{Name: "afternoon", StartHour: 13, EndHour: 17},
	{Name: "evening", StartHour: 17, EndHour: 21},
}

// Midpoint returns the center of the window on the given calendar day.
func (w Window) Midpoint(day time.Time) time.Time {
	midHour := (w.StartHour + w.EndHour) / 2
	return time.Date(day.Year(), day.Month(), day.Day(), midHour, 0, 0, 0, day.Location())
}

// Slot is one concrete time window on a calendar date.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
}

// NewSlot builds a slot on the given day from "HH:MM" time-of-day strings.
func NewSlot(day time.Time, startTime, endTime string) (Slot, error) {
	st, err := atTimeOfDay(day, startTime)
	if err != nil {
		return Slot{}, err
	}
	et, err := atTimeOfDay(day, endTime)
	if err != nil {
		return Slot{}, err
	}
	return Slot{StartTime: st, EndTime: et}, nil
}

// WindowSlot builds the slot for a canonical window on the given day.
func WindowSlot(day time.Time, w Window) Slot {
	return Slot{
		StartTime: time.Date(day.Year(), day.Month(), day.Day(), w.StartHour, 0, 0, 0, day.Location()),
		EndTime:   time.Date(day.Year(), day.Month(), day.Day(), w.EndHour, 0, 0, 0, day.Location()),
	}
}

// Day returns the slot's date in the booking platform's YYYY/MM/DD form.
func (s Slot) Day() string {
	return s.StartTime.Format("2006/01/02")
}

// DayISO returns the slot's date in the lock platform's YYYY-MM-DD form.
func (s Slot) DayISO() string {
	return s.StartTime.Format("2006-01-02")
}

// StartLabel returns "YYYY/MM/DD HH:MM" matching the booking platform.
func (s Slot) StartLabel() string {
	return s.StartTime.Format("2006/01/02 15:04")
}

// EndLabel returns "YYYY/MM/DD HH:MM" matching the booking platform.
func (s Slot) EndLabel() string {
	return s.EndTime.Format("2006/01/02 15:04")
}

// StartISO returns the start instant in the lock platform's microsecond form.
func (s Slot) StartISO() string {
	return s.StartTime.Format("2006-01-02T15:04:05.000000")
}

// EndISO returns the end instant in the lock platform's microsecond form.
func (s Slot) EndISO() string {
	return s.EndTime.Format("2006-01-02T15:04:05.000000")
}

// TimeRange returns "HH:MM-HH:MM" for report rows.
func (s Slot) TimeRange() string {
	return s.StartTime.Format("15:04") + "-" + s.EndTime.Format("15:04")
}

// atTimeOfDay places an "HH:MM" time-of-day string on the given calendar day.
func atTimeOfDay(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time of day %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
