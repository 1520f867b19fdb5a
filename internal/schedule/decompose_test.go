package schedule

import (
	"testing"
	"time"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.Local)
}

func ranges(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.TimeRange()
	}
	return out
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{
			name:  "evening window exactly",
			start: at(2022, time.August, 7, 17, 0),
			end:   at(2022, time.August, 7, 21, 0),
			want:  []string{"17:00-21:00"},
		},
		{
			name:  "two middle windows",
			start: at(2022, time.August, 12, 9, 0),
			end:   at(2022, time.August, 12, 17, 0),
			want:  []string{"09:00-13:00", "13:00-17:00"},
		},
		{
			name:  "full day",
			start: at(2022, time.August, 12, 5, 0),
			end:   at(2022, time.August, 12, 21, 0),
			want:  []string{"05:00-09:00", "09:00-13:00", "13:00-17:00", "17:00-21:00"},
		},
		{
			name:  "end on boundary does not claim next window",
			start: at(2022, time.August, 12, 9, 0),
			end:   at(2022, time.August, 12, 13, 0),
			want:  []string{"09:00-13:00"},
		},
		{
			name:  "interval inside a window past its midpoint",
			start: at(2022, time.August, 12, 10, 0),
			end:   at(2022, time.August, 12, 12, 0),
			want:  []string{"09:00-13:00"},
		},
		{
			name:  "interval before the midpoint emits nothing",
			start: at(2022, time.August, 12, 9, 0),
			end:   at(2022, time.August, 12, 10, 0),
			want:  nil,
		},
		{
			name:  "empty interval",
			start: at(2022, time.August, 12, 9, 0),
			end:   at(2022, time.August, 12, 9, 0),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ranges(Decompose(tt.start, tt.end))
			if len(got) != len(tt.want) {
				t.Fatalf("Decompose = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecomposeSlotCarriesDay(t *testing.T) {
	slots := Decompose(at(2022, time.August, 7, 17, 0), at(2022, time.August, 7, 21, 0))
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	s := slots[0]
	if s.Day() != "2022/08/07" || s.DayISO() != "2022-08-07" {
		t.Errorf("day forms = %q / %q", s.Day(), s.DayISO())
	}
	if got := s.StartISO(); got != "2022-08-07T17:00:00.000000" {
		t.Errorf("StartISO = %q", got)
	}
	if got := s.EndISO(); got != "2022-08-07T21:00:00.000000" {
		t.Errorf("EndISO = %q", got)
	}
}

func TestGridShape(t *testing.T) {
	if Grid[0].StartHour != 5 || Grid[len(Grid)-1].EndHour != 21 {
		t.Fatalf("grid does not cover 05:00-21:00: %+v", Grid)
	}
	for i := 1; i < len(Grid); i++ {
		if Grid[i].StartHour != Grid[i-1].EndHour {
			t.Errorf("windows %d and %d are not contiguous", i-1, i)
		}
	}
}
