package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// segmentPattern matches one printed reservation segment, e.g.
// "2022/08/07 17:00〜21:00". The separator between the two times is any
// non-digit run; the booking platform uses a wave dash.
var segmentPattern = regexp.MustCompile(`([0-9]+)/([0-9]+)/([0-9]+) ([0-9]+):([0-9]+)[^0-9]+([0-9]+):([0-9]+)`)

// ReservationWindow is the start/end of a reservation after its printed
// segments have been merged.
type ReservationWindow struct {
	Start time.Time
	End   time.Time
}

type segment struct {
	start time.Time
	end   time.Time
	label string
}

// ParseReservationTime parses the booking platform's printed reservation
// time. The string carries one or more day/time segments; consecutive
// segments must be end-to-end contiguous on the same day (the end of one
// equals the start of the next), in which case they merge into a single
// window. A gap between segments yields a DiscontinuousReservationError
// carrying both segment labels verbatim; the outer bounds are never used
// silently.
func ParseReservationTime(s string) (ReservationWindow, error) {
	matches := segmentPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return ReservationWindow{}, fmt.Errorf("unparsable reservation time %q", s)
	}

	var merged ReservationWindow
	var prev segment
	for i, m := range matches {
		seg, err := parseSegment(m)
		if err != nil {
			return ReservationWindow{}, err
		}
		if i == 0 {
			merged = ReservationWindow{Start: seg.start, End: seg.end}
		} else {
			if !merged.End.Equal(seg.start) {
				return ReservationWindow{}, &DiscontinuousReservationError{First: prev.label, Second: seg.label}
			}
			merged.End = seg.end
		}
		prev = seg
	}
	return merged, nil
}

// ApplyStartBuffer moves the window start earlier by bufferMin minutes so
// the door opens slightly before the reserved time. The booking platform
// never spans midnight, so the date is left untouched by construction.
func (w ReservationWindow) ApplyStartBuffer(bufferMin int) ReservationWindow {
	w.Start = w.Start.Add(-time.Duration(bufferMin) * time.Minute)
	return w
}

// StartsAt returns the window start in the lock platform's second-precision
// ISO form.
func (w ReservationWindow) StartsAt() string {
	return w.Start.Format("2006-01-02T15:04:05")
}

// EndsAt returns the window end in the lock platform's second-precision ISO
// form.
func (w ReservationWindow) EndsAt() string {
	return w.End.Format("2006-01-02T15:04:05")
}

func parseSegment(m []string) (segment, error) {
	n := make([]int, 8)
	for i := 1; i < 8; i++ {
		v, err := strconv.Atoi(m[i])
		if err != nil {
			return segment{}, fmt.Errorf("parsing reservation segment %q: %w", m[0], err)
		}
		n[i] = v
	}
	return segment{
		start: time.Date(n[1], time.Month(n[2]), n[3], n[4], n[5], 0, 0, time.Local),
		end:   time.Date(n[1], time.Month(n[2]), n[3], n[6], n[7], 0, 0, time.Local),
		// Normalized form embedded in user-facing denial messages.
		label: fmt.Sprintf("%04d/%02d/%02d %02d:%02d～%02d:%02d", n[1], n[2], n[3], n[4], n[5], n[6], n[7]),
	}, nil
}
