package report

import (
	"strconv"
	"time"

	"github.com/kempei/reservalock/internal/schedule"
)

// GridRow is one month-grid occupancy row: one canonical window on one day,
// with whoever held it, or blank fields when the window went unused.
type GridRow struct {
	SlotStart    string `json:"slot_start"`
	SlotEnd      string `json:"slot_end"`
	UserEmail    string `json:"user_email"`
	Block        string `json:"block"`
	Kumi         string `json:"kumi"`
	OfficialFlag string `json:"official_flag"`
	ExternalFlag string `json:"external_flag"`
	UserName     string `json:"user_name"`
	GuestName    string `json:"guest_name"`
	Objective    string `json:"objective"`
}

// officialKumi marks households that are recognized organizations rather
// than regular residents.
const officialKumi = "公認団体"

// recurringObjective is the fixed objective recorded for standing users.
const recurringObjective = "定期予約"

// UsageGrid walks every day of the month across the four canonical windows
// and records which access user or guest occupied each one. Rows for unused
// windows keep their slot bounds and blank occupant fields, so the grid
// always has days-in-month x 4 rows.
func (a *Aggregator) UsageGrid(year int, month time.Month) ([]GridRow, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	rows := make([]GridRow, 0, daysInMonth*len(schedule.Grid))
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		for _, w := range schedule.Grid {
			slot := schedule.WindowSlot(date, w)
			row, err := a.gridRow(slot)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (a *Aggregator) gridRow(slot schedule.Slot) (GridRow, error) {
	row := GridRow{
		SlotStart: slot.StartISO(),
		SlotEnd:   slot.EndISO(),
	}

	for _, u := range a.Users {
		if holdsSlot(u, slot) {
			row.UserEmail = u.Email
			row.OfficialFlag = strconv.FormatBool(true)
			row.ExternalFlag = strconv.FormatBool(false)
			row.UserName = u.Name
			row.Objective = recurringObjective
			break
		}
	}

	for _, g := range a.Guests {
		if !holdsSlot(g, slot) {
			continue
		}
		row.UserEmail = g.Email
		row.GuestName = g.Name
		if g.Email == "" {
			row.Block = UnregisteredLabel
			row.Kumi = UnregisteredLabel
			row.OfficialFlag = strconv.FormatBool(false)
			row.ExternalFlag = strconv.FormatBool(false)
			row.UserName = UnregisteredLabel
			row.Objective = UnregisteredLabel
			break
		}
		user, ok := a.Roster.Users[g.Email]
		if !ok {
			return GridRow{}, &MissingRosterEntryError{Email: g.Email}
		}
		m := a.Roster.MemberOf(user)
		if m == nil {
			return GridRow{}, &MissingRosterEntryError{Email: g.Email}
		}
		row.Block = m.Block
		row.Kumi = m.Kumi
		row.OfficialFlag = strconv.FormatBool(m.Kumi == officialKumi)
		row.ExternalFlag = strconv.FormatBool(false)
		row.UserName = m.MemberName
		row.Objective = user.Objective
		break
	}

	return row, nil
}

func holdsSlot(actor Actor, slot schedule.Slot) bool {
	for _, s := range actor.Timeslots {
		if s.StartISO() == slot.StartISO() && s.EndISO() == slot.EndISO() {
			return true
		}
	}
	return false
}
