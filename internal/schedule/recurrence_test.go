package schedule

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestExpandSecondSunday(t *testing.T) {
	// 2022-05-01 is a Sunday, so the month starts on the target weekday.
	policies := []AccessPolicy{
		{Day: "Sun", Slots: []string{"09:00", "13:00"}, Weeks: []int{2}},
	}

	slots, exceptions, err := Expand(policies, date(2022, time.May, 1), 35, 0)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	if len(slots) != 1 {
		t.Fatalf("expected exactly one slot, got %d", len(slots))
	}
	if got := slots[0].Day(); got != "2022/05/08" {
		t.Errorf("slot day = %q, want 2022/05/08", got)
	}
	if got := slots[0].TimeRange(); got != "09:00-13:00" {
		t.Errorf("slot range = %q, want 09:00-13:00", got)
	}

	// Every other Sunday in the horizon becomes an access exception:
	// May 1, 15, 22, 29 (June 5 is past the 35-day horizon).
	want := []string{"2022-05-01", "2022-05-15", "2022-05-22", "2022-05-29"}
	if len(exceptions) != len(want) {
		t.Fatalf("expected %d exceptions, got %d: %v", len(want), len(exceptions), exceptions)
	}
	for i, w := range want {
		if exceptions[i].StartDate != w || exceptions[i].EndDate != w {
			t.Errorf("exception[%d] = %+v, want single-day %s", i, exceptions[i], w)
		}
	}
}

func TestExpandEmptyPolicyList(t *testing.T) {
	start := date(2022, time.May, 1)
	slots, exceptions, err := Expand(nil, start, 31, 365)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots, got %d", len(slots))
	}
	if len(exceptions) != 1 {
		t.Fatalf("expected exactly one placeholder exception, got %d", len(exceptions))
	}
	if want := "2023-05-01"; exceptions[0].StartDate != want {
		t.Errorf("placeholder dated %s, want %s", exceptions[0].StartDate, want)
	}
}

func TestExpandHorizonBounds(t *testing.T) {
	// Every Tuesday of every week: slots must all fall inside the horizon.
	policies := []AccessPolicy{
		{Day: "Tue", Slots: []string{"13:00", "17:00"}, Weeks: []int{1, 2, 3, 4, 5}},
	}
	start := date(2022, time.August, 1)
	horizonDays := 14

	slots, _, err := Expand(policies, start, horizonDays, 0)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 Tuesdays in 14 days, got %d slots", len(slots))
	}
	end := start.AddDate(0, 0, horizonDays)
	for _, s := range slots {
		if s.StartTime.Before(start) || !s.StartTime.Before(end) {
			t.Errorf("slot %s outside horizon [%s, %s)", s.StartLabel(), start, end)
		}
	}
}

func TestExpandUnusedDateSkipsDay(t *testing.T) {
	// 2022-08-02 is the first Tuesday; the unused-date entry must suppress
	// its slot and surface as an exception instead.
	policies := []AccessPolicy{
		{UnusedDate: "2022-08-02"},
		{Day: "Tue", Slots: []string{"09:00", "13:00"}, Weeks: []int{1, 2}},
	}

	slots, exceptions, err := Expand(policies, date(2022, time.August, 1), 14, 0)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot (second Tuesday only), got %d", len(slots))
	}
	if got := slots[0].Day(); got != "2022/08/09" {
		t.Errorf("slot day = %q, want 2022/08/09", got)
	}
	if len(exceptions) != 1 || exceptions[0].StartDate != "2022-08-02" {
		t.Errorf("exceptions = %v, want just 2022-08-02", exceptions)
	}
}

func TestExpandMultipleSameDayPairs(t *testing.T) {
	policies := []AccessPolicy{
		{Day: "Mon", Slots: []string{"09:00", "13:00", "13:00", "17:00"}, Weeks: []int{1}},
	}

	slots, _, err := Expand(policies, date(2022, time.August, 1), 7, 0)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots from 2 pairs, got %d", len(slots))
	}
	if slots[0].TimeRange() != "09:00-13:00" || slots[1].TimeRange() != "13:00-17:00" {
		t.Errorf("pairs emitted out of list order: %s, %s", slots[0].TimeRange(), slots[1].TimeRange())
	}
}

func TestExpandSameDayExceptionDoesNotSuppressLaterPolicy(t *testing.T) {
	// The first policy marks 2022-08-01 (a Monday, 1st week) as an
	// exception because it only wants week 2. The second policy still emits
	// its slot for the same day: exclusion is decided once at the top of
	// the day loop, before either policy runs.
	policies := []AccessPolicy{
		{Day: "Mon", Slots: []string{"09:00", "13:00"}, Weeks: []int{2}},
		{Day: "Mon", Slots: []string{"13:00", "17:00"}, Weeks: []int{1}},
	}

	slots, exceptions, err := Expand(policies, date(2022, time.August, 1), 1, 0)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(slots) != 1 || slots[0].TimeRange() != "13:00-17:00" {
		t.Fatalf("later policy's slot suppressed, slots = %v", slots)
	}
	if len(exceptions) != 1 || exceptions[0].StartDate != "2022-08-01" {
		t.Fatalf("exceptions = %v, want 2022-08-01", exceptions)
	}
}

func TestExpandMalformedPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policies []AccessPolicy
	}{
		{"odd slot list", []AccessPolicy{{Day: "Mon", Slots: []string{"09:00", "13:00", "17:00"}, Weeks: []int{1}}}},
		{"unknown weekday", []AccessPolicy{{Day: "Monday", Slots: []string{"09:00", "13:00"}, Weeks: []int{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Expand(tt.policies, date(2022, time.August, 1), 7, 0)
			var mpe *MalformedPolicyError
			if !errors.As(err, &mpe) {
				t.Fatalf("expected MalformedPolicyError, got %v", err)
			}
		})
	}
}

func TestOrdinalWeekday(t *testing.T) {
	tests := []struct {
		day      time.Time
		wantNth  int
		wantWday int
	}{
		{date(2022, time.May, 1), 1, 6},  // 1st Sunday
		{date(2022, time.May, 8), 2, 6},  // 2nd Sunday
		{date(2022, time.May, 31), 5, 1}, // 5th Tuesday
		{date(2022, time.August, 1), 1, 0},
	}
	for _, tt := range tests {
		nth, wd := ordinalWeekday(tt.day)
		if nth != tt.wantNth || wd != tt.wantWday {
			t.Errorf("ordinalWeekday(%s) = (%d,%d), want (%d,%d)",
				tt.day.Format("2006-01-02"), nth, wd, tt.wantNth, tt.wantWday)
		}
	}
}
