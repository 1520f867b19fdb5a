package schedule

import (
	"errors"
	"strings"
	"testing"
)

func TestParseReservationTime(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
	}{
		{"single segment", "2022/08/07 17:00〜21:00", "2022-08-07T17:00:00", "2022-08-07T21:00:00"},
		{"two contiguous segments", "2022/08/12 09:00〜13:00, 2022/08/12 13:00〜17:00", "2022-08-12T09:00:00", "2022-08-12T17:00:00"},
		{"three contiguous segments", "2022/08/12 09:00〜13:00, 2022/08/12 13:00〜17:00, 2022/08/12 17:00〜21:00", "2022-08-12T09:00:00", "2022-08-12T21:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseReservationTime(tt.input)
			if err != nil {
				t.Fatalf("ParseReservationTime(%q) error: %v", tt.input, err)
			}
			if got := w.StartsAt(); got != tt.wantStart {
				t.Errorf("start = %q, want %q", got, tt.wantStart)
			}
			if got := w.EndsAt(); got != tt.wantEnd {
				t.Errorf("end = %q, want %q", got, tt.wantEnd)
			}
		})
	}
}

func TestParseReservationTimeDiscontinuous(t *testing.T) {
	_, err := ParseReservationTime("2022/08/12 09:00〜13:00, 2022/08/12 17:00〜21:00")

	var dre *DiscontinuousReservationError
	if !errors.As(err, &dre) {
		t.Fatalf("expected DiscontinuousReservationError, got %v", err)
	}
	if dre.First != "2022/08/12 09:00～13:00" {
		t.Errorf("First = %q", dre.First)
	}
	if dre.Second != "2022/08/12 17:00～21:00" {
		t.Errorf("Second = %q", dre.Second)
	}
	// Both conflicting segments must appear in the user-facing message.
	msg := dre.Error()
	if !strings.Contains(msg, "[2022/08/12 09:00～13:00]") || !strings.Contains(msg, "[2022/08/12 17:00～21:00]") {
		t.Errorf("message missing segment labels: %s", msg)
	}
}

func TestParseReservationTimeGarbage(t *testing.T) {
	if _, err := ParseReservationTime("not a reservation"); err == nil {
		t.Fatal("expected error for unparsable input")
	}
}

func TestApplyStartBuffer(t *testing.T) {
	w, err := ParseReservationTime("2022/08/07 17:00〜21:00")
	if err != nil {
		t.Fatal(err)
	}
	buffered := w.ApplyStartBuffer(30)
	if got := buffered.StartsAt(); got != "2022-08-07T16:30:00" {
		t.Errorf("buffered start = %q, want 2022-08-07T16:30:00", got)
	}
	if got := buffered.EndsAt(); got != "2022-08-07T21:00:00" {
		t.Errorf("end changed by buffer: %q", got)
	}
}
