package schedule

import (
	"fmt"
	"time"
)

// AccessPolicy is one entry of the recurring weekly access policy stored on
// the lock platform user. An entry is either a weekly rule (Day/Slots/Weeks)
// or a single excluded date (UnusedDate); the two forms are mutually
// exclusive.
//
// Wire form:
//
//	{"day":"Tue","slot":["09:00","13:00","13:00","17:00"],"week":[1]}
//	{"unused-date":"2023-06-05"}
//
// The slot list pairs up two at a time; each (start,end) pair is one
// reservation window, so multiple pairs express multiple same-day
// reservations.
type AccessPolicy struct {
	Day        string   `json:"day,omitempty"`
	Slots      []string `json:"slot,omitempty"`
	Weeks      []int    `json:"week,omitempty"`
	UnusedDate string   `json:"unused-date,omitempty"`
}

// IsUnusedDate reports whether the entry is the excluded-date form.
func (p AccessPolicy) IsUnusedDate() bool {
	return p.UnusedDate != ""
}

// ExceptionRange is an inclusive date range on which standing access is
// revoked. Single-day exceptions have equal bounds. Dates use the lock
// platform's YYYY-MM-DD form.
type ExceptionRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// DefaultExceptionDays is how far ahead the placeholder exception is dated
// when a horizon expansion produces no natural exceptions. The lock platform
// rejects an empty exception list, so one far-future entry is always kept.
const DefaultExceptionDays = 365

var weekdayIndex = map[string]int{
	"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3, "Fri": 4, "Sat": 5, "Sun": 6,
}

// nthWeek returns which occurrence of its weekday a day-of-month is:
// days 1-7 are the 1st, 8-14 the 2nd, and so on.
func nthWeek(dayOfMonth int) int {
	return (dayOfMonth-1)/7 + 1
}

// ordinalWeekday returns (nth occurrence in month, 0-based weekday with
// Monday first) for a date.
func ordinalWeekday(t time.Time) (int, int) {
	// time.Weekday counts Sunday=0; the policy symbols count Monday=0.
	wd := (int(t.Weekday()) + 6) % 7
	return nthWeek(t.Day()), wd
}

// Expand converts a recurring access policy into concrete slots and access
// exception dates over [horizonStart, horizonStart+horizonDays).
//
// Excluded dates are collected into the exception list before the day scan;
// a day already present in that list is skipped entirely. A weekday match
// with the wrong ordinal marks the date as an exception. Exceptions appended
// while scanning a day do not suppress slot emission by policies inspected
// later the same day; the exclusion check happens once at the top of the day
// loop. Callers must not reorder this.
//
// If no exceptions arise over the whole horizon, a single placeholder dated
// horizonStart+exceptionDefaultDays is appended so the result is never empty.
func Expand(policies []AccessPolicy, horizonStart time.Time, horizonDays, exceptionDefaultDays int) ([]Slot, []ExceptionRange, error) {
	if exceptionDefaultDays <= 0 {
		exceptionDefaultDays = DefaultExceptionDays
	}

	if err := validatePolicies(policies); err != nil {
		return nil, nil, err
	}

	slots := []Slot{}
	exceptions := []ExceptionRange{}

	// Excluded dates first, independent of the day loop.
	for _, p := range policies {
		if p.IsUnusedDate() {
			exceptions = append(exceptions, ExceptionRange{StartDate: p.UnusedDate, EndDate: p.UnusedDate})
		}
	}

	for i := 0; i < horizonDays; i++ {
		day := horizonStart.AddDate(0, 0, i)
		iso := day.Format("2006-01-02")

		if containsExceptionDate(exceptions, iso) {
			continue
		}

		for _, p := range policies {
			if p.IsUnusedDate() || p.Day == "" {
				continue
			}
			nth, wd := ordinalWeekday(day)
			if weekdayIndex[p.Day] != wd {
				continue
			}
			if containsInt(p.Weeks, nth) {
				for j := 0; j+1 < len(p.Slots); j += 2 {
					slot, err := NewSlot(day, p.Slots[j], p.Slots[j+1])
					if err != nil {
						return nil, nil, &MalformedPolicyError{Day: p.Day, Reason: err.Error()}
					}
					slots = append(slots, slot)
				}
			} else {
				// Right weekday, wrong week of the month: the lock stays
				// closed to this user that day.
				exceptions = append(exceptions, ExceptionRange{StartDate: iso, EndDate: iso})
			}
		}
	}

	if len(exceptions) == 0 {
		placeholder := horizonStart.AddDate(0, 0, exceptionDefaultDays).Format("2006-01-02")
		exceptions = append(exceptions, ExceptionRange{StartDate: placeholder, EndDate: placeholder})
	}

	return slots, exceptions, nil
}

func validatePolicies(policies []AccessPolicy) error {
	for _, p := range policies {
		if p.IsUnusedDate() {
			continue
		}
		if _, ok := weekdayIndex[p.Day]; !ok {
			return &MalformedPolicyError{Day: p.Day, Reason: fmt.Sprintf("unrecognized weekday %q", p.Day)}
		}
		if len(p.Slots)%2 != 0 {
			return &MalformedPolicyError{Day: p.Day, Reason: fmt.Sprintf("slot list has odd length %d", len(p.Slots))}
		}
	}
	return nil
}

func containsExceptionDate(exceptions []ExceptionRange, iso string) bool {
	for _, e := range exceptions {
		if e.StartDate == iso {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
